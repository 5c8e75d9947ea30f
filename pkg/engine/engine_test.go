package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/marmos91/dittoiod/pkg/store/object/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_ConcurrencyLimit(t *testing.T) {
	e := New(Config{Concurrency: 2}, nil)

	var running, peak atomic.Int32
	b := e.NewBatch(context.Background())
	for i := 0; i < 10; i++ {
		b.Go(fmt.Sprintf("task:%d", i), func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil
		})
	}

	res, err := b.Wait()
	require.NoError(t, err)
	assert.Equal(t, 10, res.Completed)
	assert.True(t, res.OK())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBatch_FailuresDoNotCancelSiblings(t *testing.T) {
	e := New(Config{}, nil)
	boom := errors.New("boom")

	var ran atomic.Int32
	res, err := e.Run(context.Background(), map[string]Task{
		"fail": func(ctx context.Context) error { return boom },
		"ok:1": func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			if ctx.Err() == nil {
				ran.Add(1)
			}
			return nil
		},
		"ok:2": func(ctx context.Context) error { ran.Add(1); return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Completed)
	assert.Equal(t, int32(2), ran.Load())
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Failed["fail"], boom)
}

func TestBatch_Cancelled(t *testing.T) {
	e := New(Config{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	b := e.NewBatch(ctx)
	b.Go("never", func(ctx context.Context) error { ran.Add(1); return nil })

	_, err := b.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ran.Load())
}

func TestThrottle(t *testing.T) {
	unlimited := NewThrottle(0, 0)
	assert.True(t, unlimited.Unlimited())
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.Allow())
	}

	limited := NewThrottle(1, 0)
	assert.False(t, limited.Unlimited())
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())

	limited.SetRate(0)
	assert.True(t, limited.Unlimited())
	assert.True(t, limited.Allow())
}

func TestThrottle_WaitCancelled(t *testing.T) {
	th := NewThrottle(1, 1)
	require.True(t, th.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := th.Wait(ctx)
	assert.Error(t, err)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "create", kind("create:a/b"))
	assert.Equal(t, "plain", kind("plain"))
}

// TestBatch_GroupCreates dispatches sibling creates as independent tasks
// against one container.
func TestBatch_GroupCreates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryContainer(memory.MemoryContainerConfig{})
	h := group.NewHandler(group.HandlerConfig{})
	_, err := h.Bootstrap(ctx, store, 1, group.ChecksumStore)
	require.NoError(t, err)
	root, err := group.OpenRoot(ctx, store)
	require.NoError(t, err)

	names := []string{"a", "b", "c", "a"}
	replies := make([]group.CreateReply, len(names))

	e := New(Config{Concurrency: 3, RequestsPerSecond: 1000, Burst: 10}, nil)
	b := e.NewBatch(ctx)
	for i, name := range names {
		gid, md, attr, err := group.AllocateGroupIDs(ctx, store)
		require.NoError(t, err)
		req := &group.CreateRequest{
			Container: store, LocID: group.RootID, LocHandles: root,
			GroupID: gid, MDKVID: md, AttrKVID: attr,
			Name: name, TransNum: 2, RcxtNum: 1, ChecksumScope: group.ChecksumStore,
		}
		i := i
		b.Go(fmt.Sprintf("create:%s#%d", name, i), func(ctx context.Context) error {
			return h.CreateGroup(ctx, req, group.SinkFunc[group.CreateReply](func(r group.CreateReply) {
				replies[i] = r
			}))
		})
	}
	res, err := b.Wait()
	require.NoError(t, err)
	assert.Equal(t, len(names), res.Completed)
	assert.Len(t, res.Failed, 1)

	statuses := map[group.Status]int{}
	for _, r := range replies {
		statuses[r.Status]++
	}
	assert.Equal(t, 3, statuses[group.StatusOK])
	assert.Equal(t, 1, statuses[group.StatusDuplicateName])
}
