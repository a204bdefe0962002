package apiclient

import (
	"sync"
)

// Notifier shows a transient, non-blocking message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) {
	f(message)
}

// Recorder is a Notifier that keeps every message it is given.
type Recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *Recorder) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

// Messages returns a copy of the recorded messages in arrival order.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// Relay forwards notifications to a target that can be swapped at runtime,
// so one client can report to the CLI printer or the TUI.
type Relay struct {
	mu     sync.RWMutex
	target Notifier
}

// NewRelay creates a Relay forwarding to target.
func NewRelay(target Notifier) *Relay {
	return &Relay{target: target}
}

// Set replaces the target and returns the previous one.
func (r *Relay) Set(target Notifier) Notifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.target
	r.target = target
	return prev
}

func (r *Relay) Notify(message string) {
	r.mu.RLock()
	target := r.target
	r.mu.RUnlock()
	if target != nil {
		target.Notify(message)
	}
}
