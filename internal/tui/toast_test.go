package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToasts_PushAndRemove(t *testing.T) {
	ts := newToasts(time.Second)

	require.NotNil(t, ts.Push(toastError, "request timed out after 30s"))
	require.NotNil(t, ts.Push(toastInfo, "saved"))
	assert.Equal(t, 2, ts.Len())

	ts.Remove(ts.items[0].id)
	require.Equal(t, 1, ts.Len())
	assert.Equal(t, "saved", ts.items[0].text)

	ts.Remove(999)
	assert.Equal(t, 1, ts.Len())
}

func TestToasts_IgnoresBlank(t *testing.T) {
	ts := newToasts(time.Second)

	assert.Nil(t, ts.Push(toastError, "   "))
	assert.Equal(t, 0, ts.Len())
	assert.Empty(t, ts.View(80))
}

func TestToasts_KeepsNewest(t *testing.T) {
	ts := newToasts(time.Second)
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		ts.Push(toastError, text)
	}

	require.Equal(t, maxToasts, ts.Len())
	assert.Equal(t, "c", ts.items[0].text)
	assert.Equal(t, "e", ts.items[maxToasts-1].text)
	assert.Contains(t, ts.View(80), "e")
}
