// Package state tracks per-file check history across repeated checks
package state

import (
	"path/filepath"
	"sync"
)

// FileState is the remembered outcome of the last check of one file
type FileState struct {
	ErrorCount   int
	WarningCount int
	CheckCount   int
}

// TotalIssues returns the remembered error and warning total
func (s FileState) TotalIssues() int {
	return s.ErrorCount + s.WarningCount
}

// Snapshot is what Update observed: the counts before the update and the
// check count after it
type Snapshot struct {
	PrevErrors   int
	PrevWarnings int
	CheckCount   int
}

// PrevTotal returns the previous error and warning total
func (s Snapshot) PrevTotal() int {
	return s.PrevErrors + s.PrevWarnings
}

// Repeat reports whether the file had been checked before this update
func (s Snapshot) Repeat() bool {
	return s.CheckCount > 1
}

// Tracker maps canonical file paths to their state. Entries are never removed.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*FileState
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{states: make(map[string]*FileState)}
}

// Update records new counts for path and returns the counts they replaced
func (t *Tracker) Update(path string, errors, warnings int) Snapshot {
	key := Canonical(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[key]
	if !ok {
		st = &FileState{}
		t.states[key] = st
	}

	snap := Snapshot{PrevErrors: st.ErrorCount, PrevWarnings: st.WarningCount}
	st.ErrorCount = errors
	st.WarningCount = warnings
	st.CheckCount++
	snap.CheckCount = st.CheckCount
	return snap
}

// Get returns a copy of the state recorded for path
func (t *Tracker) Get(path string) (FileState, bool) {
	key := Canonical(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[key]
	if !ok {
		return FileState{}, false
	}
	return *st, true
}

// Len returns the number of tracked files
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.states)
}

// Canonical resolves path to an absolute path with symlinks evaluated. Paths
// that no longer exist keep their cleaned absolute spelling.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, evalErr := filepath.EvalSymlinks(abs); evalErr == nil {
		return resolved
	}
	return abs
}
