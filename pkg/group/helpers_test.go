package group

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/marmos91/dittoiod/pkg/store/object/memory"
	"github.com/stretchr/testify/require"
)

// testEnv is a memory container with a bootstrapped root group whose
// handle pair stays open for the duration of the test.
type testEnv struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.MemoryContainer
	handler *Handler
	root    object.HandlePair
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewMemoryContainer(memory.MemoryContainerConfig{Name: "test"})
	h := NewHandler(HandlerConfig{})

	created, err := h.Bootstrap(ctx, store, 1, ChecksumStore)
	require.NoError(t, err)
	require.True(t, created)

	root, err := OpenRoot(ctx, store)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.CloseObject(ctx, root.Read)
		_ = store.CloseObject(ctx, root.Write)
	})

	return &testEnv{t: t, ctx: ctx, store: store, handler: h, root: root}
}

// createRequest builds a create request for path under the root, with
// freshly allocated IDs.
func (e *testEnv) createRequest(c object.Container, path string, wtid object.TransID) *CreateRequest {
	e.t.Helper()
	g, md, attr, err := AllocateGroupIDs(e.ctx, e.store)
	require.NoError(e.t, err)
	return &CreateRequest{
		Container:     c,
		LocID:         RootID,
		LocHandles:    e.root,
		GroupID:       g,
		MDKVID:        md,
		AttrKVID:      attr,
		Name:          path,
		TransNum:      wtid,
		RcxtNum:       wtid - 1,
		ChecksumScope: ChecksumStore,
	}
}

// create runs a create request and returns its single reply.
func (e *testEnv) create(req *CreateRequest) (CreateReply, error) {
	e.t.Helper()
	rec := &Recorder[CreateReply]{}
	err := e.handler.CreateGroup(e.ctx, req, rec)
	replies := rec.Replies()
	require.Len(e.t, replies, 1)
	return replies[0], err
}

// mkdir creates path and closes the new group's handles.
func (e *testEnv) mkdir(path string, wtid object.TransID) *CreateRequest {
	e.t.Helper()
	req := e.createRequest(e.store, path, wtid)
	reply, err := e.create(req)
	require.NoError(e.t, err)
	require.Equal(e.t, StatusOK, reply.Status)
	require.NoError(e.t, e.store.CloseObject(e.ctx, reply.Handles.Read))
	require.NoError(e.t, e.store.CloseObject(e.ctx, reply.Handles.Write))
	return req
}

func (e *testEnv) openRequest(c object.Container, path string, rtid object.TransID, scope ChecksumScope) *OpenRequest {
	return &OpenRequest{
		Container:     c,
		LocID:         RootID,
		LocHandles:    e.root,
		Name:          path,
		RcxtNum:       rtid,
		ChecksumScope: scope,
	}
}

// open runs an open request and returns its single reply.
func (e *testEnv) open(req *OpenRequest) (OpenReply, error) {
	e.t.Helper()
	rec := &Recorder[OpenReply]{}
	err := e.handler.OpenGroup(e.ctx, req, rec)
	replies := rec.Replies()
	require.Len(e.t, replies, 1)
	return replies[0], err
}

// closeReply closes pair through the handler and returns the reply.
func (e *testEnv) closePair(pair object.HandlePair) CloseReply {
	e.t.Helper()
	rec := &Recorder[CloseReply]{}
	_ = e.handler.CloseGroup(e.ctx, &CloseRequest{Container: e.store, Handles: pair}, rec)
	replies := rec.Replies()
	require.Len(e.t, replies, 1)
	return replies[0]
}

// ============================================================================
// Instrumented containers
// ============================================================================

// faultContainer fails the nth call of one operation with an I/O error.
type faultContainer struct {
	object.Container

	op string
	n  int

	mu    sync.Mutex
	calls map[string]int
}

func newFaultContainer(c object.Container, op string, n int) *faultContainer {
	return &faultContainer{Container: c, op: op, n: n, calls: make(map[string]int)}
}

func (f *faultContainer) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if op == f.op && f.calls[op] == f.n {
		return object.NewError(object.ErrIOError, "injected "+op+" failure")
	}
	return nil
}

func (f *faultContainer) Create(ctx context.Context, wtid object.TransID, typ object.ObjectType, id object.ObjectID) error {
	if err := f.check("Create"); err != nil {
		return err
	}
	return f.Container.Create(ctx, wtid, typ, id)
}

func (f *faultContainer) OpenRead(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	if err := f.check("OpenRead"); err != nil {
		return object.UndefinedHandle, err
	}
	return f.Container.OpenRead(ctx, id)
}

func (f *faultContainer) OpenWrite(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	if err := f.check("OpenWrite"); err != nil {
		return object.UndefinedHandle, err
	}
	return f.Container.OpenWrite(ctx, id)
}

func (f *faultContainer) SetScratch(ctx context.Context, h object.Handle, wtid object.TransID, data []byte, cs object.Checksum) error {
	if err := f.check("SetScratch"); err != nil {
		return err
	}
	return f.Container.SetScratch(ctx, h, wtid, data, cs)
}

func (f *faultContainer) GetScratch(ctx context.Context, h object.Handle, rtid object.TransID) (*object.Scratch, error) {
	if err := f.check("GetScratch"); err != nil {
		return nil, err
	}
	return f.Container.GetScratch(ctx, h, rtid)
}

func (f *faultContainer) Insert(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte) error {
	if err := f.check("Insert"); err != nil {
		return err
	}
	return f.Container.Insert(ctx, h, wtid, key, value)
}

func (f *faultContainer) Get(ctx context.Context, h object.Handle, rtid object.TransID, key []byte) ([]byte, error) {
	if err := f.check("Get"); err != nil {
		return nil, err
	}
	return f.Container.Get(ctx, h, rtid, key)
}

// countingContainer records every handle opened and every close call.
type countingContainer struct {
	object.Container

	mu     sync.Mutex
	opened []object.Handle
	closes map[object.Handle]int
}

func newCountingContainer(c object.Container) *countingContainer {
	return &countingContainer{Container: c, closes: make(map[object.Handle]int)}
}

func (c *countingContainer) record(h object.Handle, err error) (object.Handle, error) {
	if err == nil {
		c.mu.Lock()
		c.opened = append(c.opened, h)
		c.mu.Unlock()
	}
	return h, err
}

func (c *countingContainer) OpenRead(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	return c.record(c.Container.OpenRead(ctx, id))
}

func (c *countingContainer) OpenWrite(ctx context.Context, id object.ObjectID) (object.Handle, error) {
	return c.record(c.Container.OpenWrite(ctx, id))
}

func (c *countingContainer) CloseObject(ctx context.Context, h object.Handle) error {
	c.mu.Lock()
	c.closes[h]++
	c.mu.Unlock()
	return c.Container.CloseObject(ctx, h)
}

func (c *countingContainer) snapshot() ([]object.Handle, map[object.Handle]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	closes := make(map[object.Handle]int, len(c.closes))
	for h, n := range c.closes {
		closes[h] = n
	}
	return append([]object.Handle(nil), c.opened...), closes
}

// pausingContainer blocks the insert of one key until released, so a test
// can observe the namespace just before publication.
type pausingContainer struct {
	object.Container

	key     []byte
	reached chan struct{}
	proceed chan struct{}
	once    sync.Once
}

func newPausingContainer(c object.Container, key string) *pausingContainer {
	return &pausingContainer{
		Container: c,
		key:       []byte(key),
		reached:   make(chan struct{}),
		proceed:   make(chan struct{}),
	}
}

func (p *pausingContainer) Insert(ctx context.Context, h object.Handle, wtid object.TransID, key, value []byte) error {
	if bytes.Equal(key, p.key) {
		p.once.Do(func() { close(p.reached) })
		<-p.proceed
	}
	return p.Container.Insert(ctx, h, wtid, key, value)
}
