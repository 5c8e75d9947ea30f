package badger

import (
	"context"
	"testing"

	"github.com/marmos91/dittoiod/pkg/store/object"
	objecttesting "github.com/marmos91/dittoiod/pkg/store/object/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) *BadgerContainer {
	t.Helper()
	c, err := NewBadgerContainer(context.Background(), BadgerContainerConfig{
		Name:   "test",
		DBPath: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerContainer(t *testing.T) {
	suite := &objecttesting.StoreTestSuite{
		NewStore: func(t *testing.T) object.Container {
			return newTestContainer(t)
		},
	}
	suite.Run(t)
}

func TestBadgerContainer_InMemory(t *testing.T) {
	ctx := context.Background()
	c, err := NewBadgerContainer(ctx, BadgerContainerConfig{InMemory: true})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "badger", c.Name())
	require.NoError(t, c.Create(ctx, 1, object.TypeKV, 3))
}

func TestBadgerContainer_RequiresPath(t *testing.T) {
	_, err := NewBadgerContainer(context.Background(), BadgerContainerConfig{})
	assert.Error(t, err)
}

func TestBadgerContainer_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewBadgerContainer(ctx, BadgerContainerConfig{DBPath: dir})
	require.NoError(t, err)

	first, err := c.AllocateIDs(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, c.Create(ctx, 1, object.TypeKV, first))
	wr, err := c.OpenWrite(ctx, first)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, wr, 1, []byte("k"), []byte("v")))
	require.NoError(t, c.Close())

	reopened, err := NewBadgerContainer(ctx, BadgerContainerConfig{DBPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	rd, err := reopened.OpenRead(ctx, first)
	require.NoError(t, err)
	val, err := reopened.Get(ctx, rd, 1, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	// IDs handed out before the restart are never handed out again.
	next, err := reopened.AllocateIDs(ctx, 1)
	require.NoError(t, err)
	assert.Greater(t, uint64(next), uint64(first))
}

func TestBadgerContainer_CloseIdempotent(t *testing.T) {
	c, err := NewBadgerContainer(context.Background(), BadgerContainerConfig{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.OpenRead(context.Background(), 1)
	assert.True(t, object.IsCode(err, object.ErrClosed))
}

func TestKeyValueVersionOrdering(t *testing.T) {
	prefix := keyValuePrefix(7, kindKV, []byte("name"))
	newer := keyValueVersion(prefix, 9)
	older := keyValueVersion(prefix, 3)

	// Newer versions sort first so that a seek lands on the newest
	// version at or below the read context.
	assert.Less(t, string(newer), string(older))
}
