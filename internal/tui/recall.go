package tui

// recall steps through the SIM history for up/down navigation in the SIM
// field. Entries are held oldest first; Older starts at the newest one. The
// text typed before recall began is restored when stepping past the newest
// entry.
type recall struct {
	entries []string
	pos     int
	draft   string
}

func newRecall(entries []string) recall {
	return recall{entries: entries, pos: -1}
}

// Active reports whether a history entry is currently shown.
func (r recall) Active() bool {
	return r.pos >= 0
}

// Older returns the entry before the current one, stopping at the oldest.
func (r *recall) Older(current string) string {
	if len(r.entries) == 0 {
		return current
	}
	switch {
	case r.pos < 0:
		r.draft = current
		r.pos = len(r.entries) - 1
	case r.pos > 0:
		r.pos--
	}
	return r.entries[r.pos]
}

// Newer returns the entry after the current one, or the draft once past the
// newest.
func (r *recall) Newer(current string) string {
	if r.pos < 0 {
		return current
	}
	r.pos++
	if r.pos >= len(r.entries) {
		r.pos = -1
		return r.draft
	}
	return r.entries[r.pos]
}

// Reset replaces the entries and leaves recall mode.
func (r *recall) Reset(entries []string) {
	r.entries = entries
	r.pos = -1
	r.draft = ""
}

// Leave exits recall mode, keeping the entries.
func (r *recall) Leave() {
	r.pos = -1
	r.draft = ""
}
