package group

import (
	"errors"
	"testing"

	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupMetadata(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Create(env.ctx, 2, object.TypeKV, 100))

	hs := newHandleScope(env.ctx, env.store)
	defer hs.Close()
	md, err := hs.openPair(100)
	require.NoError(t, err)

	require.NoError(t, InsertGroupMetadata(env.ctx, env.store, md.Write, 2, PropertyList("p")))

	props, err := LookupCreateProps(env.ctx, env.store, md.Read, 2)
	require.NoError(t, err)
	assert.Equal(t, PropertyList("p"), props)

	count, err := LookupLinkCount(env.ctx, env.store, md.Read, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	kind, err := LookupObjectType(env.ctx, env.store, md.Read, 2)
	require.NoError(t, err)
	assert.Equal(t, KindGroup, kind)

	// The records are written once.
	err = InsertLinkCount(env.ctx, env.store, md.Write, 3, 5)
	assert.True(t, IsCode(err, ErrStore))
	assert.True(t, object.IsCode(err, object.ErrAlreadyExists))

	n, err := IncrementLinkCount(env.ctx, env.store, md, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	n, err = IncrementLinkCount(env.ctx, env.store, md, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	count, err = LookupLinkCount(env.ctx, env.store, md.Read, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestMetadataUnavailable(t *testing.T) {
	assert.True(t, metadataUnavailable(object.NewError(object.ErrNotFound, "x")))
	assert.True(t, metadataUnavailable(storeFailure("lookup", "", object.NewError(object.ErrNotSupported, "x"))))
	assert.False(t, metadataUnavailable(object.NewError(object.ErrIOError, "x")))
	assert.False(t, metadataUnavailable(errors.New("plain")))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{newError(ErrPathNotFound, "op", "p", nil), StatusPathNotFound},
		{newError(ErrDuplicateName, "op", "p", nil), StatusDuplicateName},
		{newError(ErrIntegrity, "op", "p", nil), StatusIntegrityError},
		{newError(ErrStore, "op", "p", nil), StatusStoreError},
		{newError(ErrInvalidArgument, "op", "p", nil), StatusStoreError},
		{errors.New("unclassified"), StatusStoreError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err))
	}
}

func TestStoreFailure_FirstClassificationWins(t *testing.T) {
	inner := newError(ErrDuplicateName, "insert link", "x", nil)
	assert.Same(t, error(inner), storeFailure("create group", "x", inner))

	wrapped := storeFailure("create", "x", object.NewError(object.ErrIOError, "disk"))
	assert.True(t, IsCode(wrapped, ErrStore))
	assert.True(t, object.IsCode(wrapped, object.ErrIOError))
	assert.Contains(t, wrapped.Error(), `create "x"`)
}
