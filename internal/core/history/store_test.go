package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSlot implements Slot in memory for testing.
type memSlot struct {
	mu      sync.Mutex
	values  map[string][]byte
	writes  int
	readErr error
	writeFn func(key string, value []byte) error
}

func newMemSlot() *memSlot {
	return &memSlot{values: make(map[string][]byte)}
}

func (m *memSlot) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return v, nil
}

func (m *memSlot) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeFn != nil {
		if err := m.writeFn(key, value); err != nil {
			return err
		}
	}
	m.writes++
	m.values[key] = value
	return nil
}

func newReadyStore(t *testing.T, slot Slot, opts ...Option) *Store {
	t.Helper()
	s := NewStore(slot, opts...)
	_, err := s.Initialize(context.Background())
	require.NoError(t, err)
	return s
}

func TestStore_NotInitialized(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemSlot())

	assert.False(t, s.Ready())

	_, err := s.AddIdentifier(ctx, "A1")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.SetLastView(ctx, "raw")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.State()
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = s.Entries()
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestStore_InitializeEmptySlot(t *testing.T) {
	s := NewStore(newMemSlot())

	st, err := s.Initialize(context.Background())
	require.NoError(t, err)

	assert.True(t, s.Ready())
	assert.Equal(t, []string{}, st.SimNoHistory)
	assert.Empty(t, st.LastView)
}

func TestStore_InitializeMalformedSlot(t *testing.T) {
	slot := newMemSlot()
	slot.values[DefaultSlotKey] = []byte("{not json")

	s := NewStore(slot)
	st, err := s.Initialize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, DefaultState(), st)
}

func TestStore_InitializeCorruptSlot(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	slot.readErr = fmt.Errorf("parse storage.json: %w", ErrSlotCorrupt)

	s := NewStore(slot)
	st, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, s.Ready())
	assert.Equal(t, DefaultState(), st)

	_, err = s.AddIdentifier(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.writes)
	assert.JSONEq(t, `{"simNoHistory":["A1"]}`, string(slot.values[DefaultSlotKey]))
}

func TestStore_InitializeReadError(t *testing.T) {
	slot := newMemSlot()
	slot.readErr = errors.New("disk on fire")

	s := NewStore(slot)
	_, err := s.Initialize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.False(t, s.Ready())
}

func TestStore_InitializeMergesOverDefaults(t *testing.T) {
	slot := newMemSlot()
	slot.values[DefaultSlotKey] = []byte(`{"simNoHistory":["13800000001"," 13800000002 ",""],"unknown":true}`)

	s := newReadyStore(t, slot)
	st, err := s.State()
	require.NoError(t, err)

	assert.Equal(t, []string{"13800000001", "13800000002"}, st.SimNoHistory)
	assert.Empty(t, st.LastView)
}

func TestStore_InitializeTwice(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := newReadyStore(t, slot)

	_, err := s.AddIdentifier(ctx, "A1")
	require.NoError(t, err)

	slot.values[DefaultSlotKey] = []byte(`{"simNoHistory":["other"]}`)

	st, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, st.SimNoHistory)
}

func TestStore_AddIdentifierPersistsWholeState(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := newReadyStore(t, slot)

	_, err := s.SetLastView(ctx, "location")
	require.NoError(t, err)

	st, err := s.AddIdentifier(ctx, " A1 ")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, st.SimNoHistory)

	var stored State
	require.NoError(t, json.Unmarshal(slot.values[DefaultSlotKey], &stored))
	assert.Equal(t, []string{"A1"}, stored.SimNoHistory)
	assert.Equal(t, "location", stored.LastView)
	assert.Equal(t, 2, slot.writes)
}

func TestStore_NoOpDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := newReadyStore(t, slot)

	_, err := s.AddIdentifier(ctx, "A1")
	require.NoError(t, err)

	for _, raw := range []string{"", "   ", "A1", " A1 "} {
		st, err := s.AddIdentifier(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"A1"}, st.SimNoHistory)
	}

	assert.Equal(t, 1, slot.writes)
}

func TestStore_SkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	slot.values[DefaultSlotKey] = []byte(`{"simNoHistory":["A1","B2"]}`)
	s := newReadyStore(t, slot)

	st, err := s.AddIdentifier(ctx, "A1")
	require.NoError(t, err)

	assert.Equal(t, []string{"A1", "B2"}, st.SimNoHistory)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()

	first := newReadyStore(t, slot)
	for _, raw := range []string{"13800000001", "13800000002", " 13800000003"} {
		_, err := first.AddIdentifier(ctx, raw)
		require.NoError(t, err)
	}
	want, err := first.Entries()
	require.NoError(t, err)

	second := newReadyStore(t, slot)
	got, err := second.Entries()
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestStore_CustomKey(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := newReadyStore(t, slot, WithKey("custom"))

	_, err := s.AddIdentifier(ctx, "A1")
	require.NoError(t, err)

	assert.Contains(t, slot.values, "custom")
	assert.NotContains(t, slot.values, DefaultSlotKey)
}

func TestStore_ListenerErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	slot.writeFn = func(string, []byte) error { return errors.New("read-only filesystem") }
	s := newReadyStore(t, slot)

	st, err := s.AddIdentifier(ctx, "A1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist state")
	assert.Equal(t, []string{"A1"}, st.SimNoHistory)

	entries, err := s.Entries()
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, entries)
}

func TestStore_ListenerSeesEveryChangeInOrder(t *testing.T) {
	ctx := context.Background()

	var seen [][]string
	listener := ListenerFunc(func(_ context.Context, s State) error {
		seen = append(seen, s.SimNoHistory)
		return nil
	})

	s := newReadyStore(t, newMemSlot(), WithListener(listener))
	for _, raw := range []string{"A1", "A1", "B2", "", "C3"} {
		_, err := s.AddIdentifier(ctx, raw)
		require.NoError(t, err)
	}

	assert.Equal(t, [][]string{
		{"A1"},
		{"A1", "B2"},
		{"A1", "B2", "C3"},
	}, seen)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := newReadyStore(t, slot)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddIdentifier(ctx, []string{"A1", "B2", "C3", "D4", "E5"}[i%5])
		}(i)
	}
	wg.Wait()

	entries, err := s.Entries()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A1", "B2", "C3", "D4", "E5"}, entries)
	assert.Equal(t, 5, slot.writes)
}
