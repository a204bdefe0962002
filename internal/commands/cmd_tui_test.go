package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/msgscope/internal/router"
)

func TestStartRoute(t *testing.T) {
	can, _ := router.ByName("can")

	tests := []struct {
		name     string
		view     string
		lastView string
		want     string
	}{
		{"flag by name", "location", "/query/can", "/query/location"},
		{"flag by path", "/query/body/", "", "/query/body"},
		{"unknown flag falls back to default", "/query/gps", "/query/can", router.DefaultPath},
		{"root path is the default", "/", "/query/can", router.DefaultPath},
		{"last view", "", "/query/location", "/query/location"},
		{"stale last view uses config default", "", "/query/gps", "/query/can"},
		{"nothing stored uses config default", "", "", "/query/can"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := startRoute(tt.view, tt.lastView, can)
			assert.Equal(t, tt.want, got.Path)
		})
	}
}
