package internal

import (
	"sync"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Mode is the access mode a handle was opened with.
type Mode uint8

const (
	ModeRead Mode = iota + 1
	ModeWrite
)

// String returns "read" or "write".
func (m Mode) String() string {
	if m == ModeWrite {
		return "write"
	}
	return "read"
}

type openHandle struct {
	id   object.ObjectID
	mode Mode
}

// HandleTable issues and tracks object handles for a backend.
//
// Handle cookies start at 1 and increase monotonically; a cookie is never
// reissued, so a stale handle can never alias a newer open. The table is
// safe for concurrent use.
type HandleTable struct {
	mu   sync.Mutex
	next uint64
	open map[object.Handle]openHandle
}

// NewHandleTable returns an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{
		next: 1,
		open: make(map[object.Handle]openHandle),
	}
}

// Open issues a new handle for id in mode.
func (t *HandleTable) Open(id object.ObjectID, mode Mode) object.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := object.Handle(t.next)
	t.next++
	t.open[h] = openHandle{id: id, mode: mode}
	return h
}

// Resolve returns the object behind h, checking that it was opened with
// the wanted mode.
func (t *HandleTable) Resolve(h object.Handle, want Mode) (object.ObjectID, error) {
	t.mu.Lock()
	entry, ok := t.open[h]
	t.mu.Unlock()

	if !ok {
		return object.UndefinedID, object.NewError(object.ErrInvalidHandle, "handle "+h.String()+" is not open")
	}
	if entry.mode != want {
		return object.UndefinedID, object.NewObjectError(object.ErrWrongMode,
			"handle "+h.String()+" is a "+entry.mode.String()+" handle, "+want.String()+" required", entry.id)
	}
	return entry.id, nil
}

// Close forgets h. Closing an unknown handle is an error.
func (t *HandleTable) Close(h object.Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.open[h]; !ok {
		return object.NewError(object.ErrInvalidHandle, "handle "+h.String()+" is not open")
	}
	delete(t.open, h)
	return nil
}

// Len returns the number of open handles.
func (t *HandleTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

// Reset invalidates every open handle.
func (t *HandleTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = make(map[object.Handle]openHandle)
}
