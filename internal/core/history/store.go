package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Sentinel errors for history operations.
var (
	ErrNotInitialized = errors.New("history store not initialized")
	ErrSlotNotFound   = errors.New("storage slot not found")
	ErrSlotCorrupt    = errors.New("storage slot corrupt")
)

// DefaultSlotKey is the name of the durable slot holding the state.
const DefaultSlotKey = "store"

// Slot is a durable named key-value facility. Values are opaque bytes.
type Slot interface {
	// Read returns the value stored under key. Returns ErrSlotNotFound if the
	// key was never written and ErrSlotCorrupt if the backing storage cannot
	// be parsed.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the value stored under key. Writing over corrupt storage
	// must succeed.
	Write(ctx context.Context, key string, value []byte) error
}

// Listener observes committed state changes.
type Listener interface {
	StateChanged(ctx context.Context, s State) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, s State) error

func (f ListenerFunc) StateChanged(ctx context.Context, s State) error {
	return f(ctx, s)
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the durable slot key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithListener replaces the default listener, which writes the state as JSON
// into the store's slot.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listener = l }
}

// WithLogger sets the logger used for recoverable problems.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Store owns the history State. It must be initialized once before use; after
// that every change is committed in full to the slot through a single
// registered listener.
type Store struct {
	slot Slot
	key  string
	log  zerolog.Logger

	mu       sync.Mutex
	ready    bool
	state    State
	listener Listener
}

// NewStore creates an uninitialized store backed by slot.
func NewStore(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot: slot,
		key:  DefaultSlotKey,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize rehydrates the state from the slot and registers persistence.
// Missing, corrupt or malformed slot contents fall back to DefaultState and
// the next commit overwrites them. Only I/O errors reading the slot are
// returned. Calling Initialize again is a no-op
// that returns the current state.
func (s *Store) Initialize(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return s.state.Clone(), nil
	}

	state := DefaultState()

	data, err := s.slot.Read(ctx, s.key)
	switch {
	case errors.Is(err, ErrSlotNotFound):
		s.log.Debug().Str("key", s.key).Msg("no stored state, using defaults")
	case errors.Is(err, ErrSlotCorrupt):
		s.log.Warn().Err(err).Str("key", s.key).Msg("storage is corrupt, using defaults")
	case err != nil:
		return State{}, fmt.Errorf("read slot %q: %w", s.key, err)
	default:
		stored, err := Decode(data)
		if err != nil {
			s.log.Warn().Err(err).Str("key", s.key).Msg("stored state is malformed, using defaults")
		} else {
			state = stored
		}
	}

	s.state = state
	if s.listener == nil {
		s.listener = &slotWriter{slot: s.slot, key: s.key}
	}
	s.ready = true

	return s.state.Clone(), nil
}

// Ready reports whether Initialize has completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// State returns a copy of the current state.
func (s *Store) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return State{}, ErrNotInitialized
	}
	return s.state.Clone(), nil
}

// Entries returns the recorded identifiers, oldest first.
func (s *Store) Entries() ([]string, error) {
	st, err := s.State()
	if err != nil {
		return nil, err
	}
	return st.SimNoHistory, nil
}

// AddIdentifier records raw in the history. See the package-level
// AddIdentifier for the trimming and duplicate rules.
func (s *Store) AddIdentifier(ctx context.Context, raw string) (State, error) {
	return s.commit(ctx, func(st State) (State, bool) {
		return AddIdentifier(st, raw)
	})
}

// SetLastView records the last active view.
func (s *Store) SetLastView(ctx context.Context, name string) (State, error) {
	return s.commit(ctx, func(st State) (State, bool) {
		return SetLastView(st, name)
	})
}

// commit applies mutate and, if the state changed, hands the new state to the
// listener before releasing the lock. The in-memory state is kept even when
// the listener fails; the error is returned so callers can report it.
func (s *Store) commit(ctx context.Context, mutate func(State) (State, bool)) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return State{}, ErrNotInitialized
	}

	next, changed := mutate(s.state)
	if !changed {
		return s.state.Clone(), nil
	}

	s.state = next
	if err := s.listener.StateChanged(ctx, next.Clone()); err != nil {
		return s.state.Clone(), fmt.Errorf("persist state: %w", err)
	}

	return s.state.Clone(), nil
}

// slotWriter persists the whole state as JSON into a slot.
type slotWriter struct {
	slot Slot
	key  string
}

func (w *slotWriter) StateChanged(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return w.slot.Write(ctx, w.key, data)
}
