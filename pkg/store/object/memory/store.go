package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/marmos91/dittoiod/pkg/store/object/internal"
)

// version is one write of a value under a transaction.
type version struct {
	tid   object.TransID
	value []byte
	cs    object.Checksum
}

// objectData holds everything stored for one object.
type objectData struct {
	// typ is the object layout chosen at creation
	typ object.ObjectType

	// created is the transaction that created the object
	created object.TransID

	// scratch holds the side payload versions in write order
	scratch []version

	// kv maps keys to their versions in write order (KV objects only)
	kv map[string][]version
}

// MemoryContainer implements object.Container using in-memory storage.
//
// This implementation is suitable for:
//   - Testing and development environments
//   - Ephemeral containers where persistence is not required
//
// Thread Safety:
// All object state is protected by a single read-write mutex (mu). Handle
// bookkeeping lives in its own table with its own lock, so opening and
// closing handles never contends with data access.
//
// Storage Model:
//
// Every value (side payload or KV entry) is kept as a list of versions
// tagged with the transaction that wrote it. A read at context N returns
// the newest version whose transaction is <= N. Abort removes every
// version, and every object creation, made under the aborted transaction,
// and remembers the transaction so it cannot be written to again.
type MemoryContainer struct {
	name string

	// mu protects objects, aborted, nextID and closed
	mu sync.RWMutex

	// objects maps IDs to stored objects
	objects map[object.ObjectID]*objectData

	// aborted records transactions discarded by Abort
	aborted map[object.TransID]struct{}

	// nextID is the next ID handed out by AllocateIDs
	nextID uint64

	// closed is set once Close has been called
	closed bool

	handles *internal.HandleTable
}

// MemoryContainerConfig contains configuration for an in-memory container.
type MemoryContainerConfig struct {
	// Name is the container name reported by Name()
	Name string `mapstructure:"name"`

	// FirstID is the first ID returned by AllocateIDs (default: 1)
	FirstID uint64 `mapstructure:"first_id"`
}

// NewMemoryContainer creates an empty in-memory container.
func NewMemoryContainer(config MemoryContainerConfig) *MemoryContainer {
	first := config.FirstID
	if first == 0 {
		first = 1
	}
	name := config.Name
	if name == "" {
		name = "memory"
	}

	return &MemoryContainer{
		name:    name,
		objects: make(map[object.ObjectID]*objectData),
		aborted: make(map[object.TransID]struct{}),
		nextID:  first,
		handles: internal.NewHandleTable(),
	}
}

// Name returns the container name.
func (s *MemoryContainer) Name() string {
	return s.name
}

// OpenHandles returns the number of handles currently open. Tests use it
// to check that every handle opened by an operation was released.
func (s *MemoryContainer) OpenHandles() int {
	return s.handles.Len()
}

// checkWritable validates the common preconditions of a mutation.
// Caller must hold mu.
func (s *MemoryContainer) checkWritable(wtid object.TransID) error {
	if s.closed {
		return object.NewError(object.ErrClosed, "container is closed")
	}
	if _, ok := s.aborted[wtid]; ok {
		return object.NewError(object.ErrInvalidArgument, "transaction has been aborted")
	}
	return nil
}

// Create creates a new object under wtid.
func (s *MemoryContainer) Create(ctx context.Context, wtid object.TransID, typ object.ObjectType, id object.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !id.IsDefined() {
		return object.NewError(object.ErrInvalidArgument, "cannot create object with undefined id")
	}
	if typ < object.TypeKV || typ > object.TypeBlob {
		return object.NewObjectError(object.ErrInvalidArgument, "unknown object type "+typ.String(), id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(wtid); err != nil {
		return err
	}
	if _, exists := s.objects[id]; exists {
		return object.NewObjectError(object.ErrAlreadyExists, "object already exists", id)
	}

	obj := &objectData{typ: typ, created: wtid}
	if typ == object.TypeKV {
		obj.kv = make(map[string][]version)
	}
	s.objects[id] = obj
	return nil
}

// OpenRead opens an existing object for reading.
func (s *MemoryContainer) OpenRead(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	return s.open(ctx, id, internal.ModeRead)
}

// OpenWrite opens an existing object for writing.
func (s *MemoryContainer) OpenWrite(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	return s.open(ctx, id, internal.ModeWrite)
}

func (s *MemoryContainer) open(ctx context.Context, id object.ObjectID, mode internal.Mode) (object.Handle, error) {
	if err := ctx.Err(); err != nil {
		return object.UndefinedHandle, err
	}

	s.mu.RLock()
	closed := s.closed
	_, exists := s.objects[id]
	s.mu.RUnlock()

	if closed {
		return object.UndefinedHandle, object.NewError(object.ErrClosed, "container is closed")
	}
	if !exists {
		return object.UndefinedHandle, object.NewObjectError(object.ErrNotFound, "object not found", id)
	}

	return s.handles.Open(id, mode), nil
}

// CloseObject releases a handle.
func (s *MemoryContainer) CloseObject(ctx context.Context, h object.Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.handles.Close(h)
}

// lookup resolves a handle to its object. Caller must hold mu.
func (s *MemoryContainer) lookup(h object.Handle, mode internal.Mode) (object.ObjectID, *objectData, error) {
	id, err := s.handles.Resolve(h, mode)
	if err != nil {
		return object.UndefinedID, nil, err
	}
	obj, ok := s.objects[id]
	if !ok {
		// The creating transaction was aborted while the handle was open.
		return id, nil, object.NewObjectError(object.ErrNotFound, "object not found", id)
	}
	return id, obj, nil
}

// SetScratch stores the side payload of an object.
func (s *MemoryContainer) SetScratch(ctx context.Context, h object.Handle, wtid object.TransID, data []byte, cs object.Checksum) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(wtid); err != nil {
		return err
	}
	_, obj, err := s.lookup(h, internal.ModeWrite)
	if err != nil {
		return err
	}

	obj.scratch = append(obj.scratch, version{tid: wtid, value: clone(data), cs: cs})
	return nil
}

// GetScratch returns the side payload visible at rtid.
func (s *MemoryContainer) GetScratch(ctx context.Context, h object.Handle, rtid object.TransID) (*object.Scratch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, object.NewError(object.ErrClosed, "container is closed")
	}
	id, obj, err := s.lookup(h, internal.ModeRead)
	if err != nil {
		return nil, err
	}

	v, ok := visible(obj.scratch, rtid)
	if !ok {
		return nil, object.NewObjectError(object.ErrNotFound, "no scratch pad visible at read context", id)
	}
	return &object.Scratch{Data: clone(v.value), Checksum: v.cs}, nil
}

// Set writes key=value, replacing earlier values.
func (s *MemoryContainer) Set(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte) error {
	return s.put(ctx, h, wtid, key, value, false)
}

// Insert writes key=value only if the key holds no live value.
func (s *MemoryContainer) Insert(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte) error {
	return s.put(ctx, h, wtid, key, value, true)
}

func (s *MemoryContainer) put(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte, exclusive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(key) == 0 {
		return object.NewError(object.ErrInvalidArgument, "empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(wtid); err != nil {
		return err
	}
	id, obj, err := s.lookup(h, internal.ModeWrite)
	if err != nil {
		return err
	}
	if obj.kv == nil {
		return object.NewObjectError(object.ErrInvalidArgument, "object is not a KV object", id)
	}

	k := string(key)
	if exclusive && len(obj.kv[k]) > 0 {
		return object.NewObjectError(object.ErrAlreadyExists, "key "+k+" already exists", id)
	}
	obj.kv[k] = append(obj.kv[k], version{tid: wtid, value: clone(value)})
	return nil
}

// Get reads key at rtid.
func (s *MemoryContainer) Get(ctx context.Context, h object.Handle, rtid object.TransID, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, object.NewError(object.ErrClosed, "container is closed")
	}
	id, obj, err := s.lookup(h, internal.ModeRead)
	if err != nil {
		return nil, err
	}
	if obj.kv == nil {
		return nil, object.NewObjectError(object.ErrInvalidArgument, "object is not a KV object", id)
	}

	v, ok := visible(obj.kv[string(key)], rtid)
	if !ok {
		return nil, object.NewObjectError(object.ErrNotFound, "key "+string(key)+" not found", id)
	}
	return clone(v.value), nil
}

// Abort discards every write and creation made under wtid.
func (s *MemoryContainer) Abort(ctx context.Context, wtid object.TransID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return object.NewError(object.ErrClosed, "container is closed")
	}

	for id, obj := range s.objects {
		if obj.created == wtid {
			delete(s.objects, id)
			continue
		}
		obj.scratch = dropTransaction(obj.scratch, wtid)
		for k, versions := range obj.kv {
			versions = dropTransaction(versions, wtid)
			if len(versions) == 0 {
				delete(obj.kv, k)
			} else {
				obj.kv[k] = versions
			}
		}
	}
	s.aborted[wtid] = struct{}{}
	return nil
}

// AllocateIDs reserves n consecutive IDs.
func (s *MemoryContainer) AllocateIDs(ctx context.Context, n uint64) (object.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return object.UndefinedID, err
	}
	if n == 0 {
		return object.UndefinedID, object.NewError(object.ErrInvalidArgument, "cannot allocate zero ids")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return object.UndefinedID, object.NewError(object.ErrClosed, "container is closed")
	}
	first := s.nextID
	s.nextID += n
	return object.ObjectID(first), nil
}

// Close drops all state and invalidates every handle.
func (s *MemoryContainer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.objects = make(map[object.ObjectID]*objectData)
	s.handles.Reset()
	return nil
}

// visible returns the newest version written at or before rtid. Among
// versions of the same transaction the latest write wins.
func visible(versions []version, rtid object.TransID) (version, bool) {
	var best version
	found := false
	for _, v := range versions {
		if v.tid > rtid {
			continue
		}
		if !found || v.tid >= best.tid {
			best = v
			found = true
		}
	}
	return best, found
}

func dropTransaction(versions []version, tid object.TransID) []version {
	kept := versions[:0]
	for _, v := range versions {
		if v.tid != tid {
			kept = append(kept, v)
		}
	}
	return kept
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
