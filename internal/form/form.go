// Package form runs the interactive CLI prompts.
package form

import (
	"context"
	"slices"

	"github.com/charmbracelet/huh"

	"github.com/hay-kot/msgscope/internal/core/validate"
	"github.com/hay-kot/msgscope/internal/styles"
)

// SimNo prompts for a SIM number. The most recent history entry is
// prefilled and every entry is offered as a suggestion.
func SimNo(ctx context.Context, history []string) (string, error) {
	value, input := simNoField(history)

	form := huh.NewForm(huh.NewGroup(input)).WithTheme(styles.FormTheme())
	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}

	return *value, nil
}

func simNoField(history []string) (*string, *huh.Input) {
	recent := suggestions(history)

	var value string
	if len(recent) > 0 {
		value = recent[0]
	}

	input := huh.NewInput().
		Title("SIM number").
		Description("tab completes from history").
		Placeholder("13800000000").
		Suggestions(recent).
		Value(&value).
		Validate(validate.SimNo)

	return &value, input
}

// suggestions returns history newest first.
func suggestions(history []string) []string {
	out := slices.Clone(history)
	slices.Reverse(out)
	return out
}
