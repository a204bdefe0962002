package tui

// focusArea is the pane receiving key input.
type focusArea int

const (
	focusForm focusArea = iota
	focusResults
)

func (f focusArea) toggle() focusArea {
	if f == focusForm {
		return focusResults
	}
	return focusForm
}
