package group

import (
	"testing"

	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"a", []string{"a"}},
		{"a/b/c", []string{"a", "b", "c"}},
		{"/a//b/", []string{"a", "b"}},
		{"", []string{}},
		{"///", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, splitPath(tt.path))
		})
	}
}

func TestTraverse_Aliased(t *testing.T) {
	env := newTestEnv(t)

	loc, err := Traverse(env.ctx, env.store, RootID, env.root, "leaf", 1, false)
	require.NoError(t, err)
	assert.True(t, loc.Aliased())
	assert.Equal(t, RootID, loc.ID)
	assert.Equal(t, env.root, loc.Handles)
	assert.Equal(t, "leaf", loc.Last)

	require.NoError(t, loc.Release(env.ctx, env.store))
	assert.Equal(t, 2, env.store.OpenHandles())
}

func TestTraverse_Intermediate(t *testing.T) {
	env := newTestEnv(t)
	a := env.mkdir("a", 2)

	loc, err := Traverse(env.ctx, env.store, RootID, env.root, "a/leaf", 2, false)
	require.NoError(t, err)
	assert.False(t, loc.Aliased())
	assert.Equal(t, a.GroupID, loc.ID)
	assert.True(t, loc.Handles.IsDefined())
	assert.Equal(t, 4, env.store.OpenHandles())

	require.NoError(t, loc.Release(env.ctx, env.store))
	assert.Equal(t, 2, env.store.OpenHandles())

	// Releasing twice is a no-op.
	require.NoError(t, loc.Release(env.ctx, env.store))
}

func TestTraverse_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.mkdir("a", 2)

	_, err := Traverse(env.ctx, env.store, RootID, env.root, "a/missing/leaf", 2, false)
	assert.True(t, IsCode(err, ErrPathNotFound))
	assert.Equal(t, 2, env.store.OpenHandles())

	_, err = Traverse(env.ctx, env.store, RootID, env.root, "a/leaf", 2, true)
	assert.True(t, IsCode(err, ErrInvalidArgument))

	_, err = Traverse(env.ctx, env.store, RootID, env.root, "//", 2, false)
	assert.True(t, IsCode(err, ErrInvalidArgument))

	_, err = Traverse(env.ctx, env.store, RootID, object.UndefinedPair(), "a/leaf", 2, false)
	assert.True(t, IsCode(err, ErrStore))
}

func TestTraverse_SoftLink(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, InsertLink(env.ctx, env.store, env.root.Write, 2, "soft", LinkSoft, 42))

	_, err := Traverse(env.ctx, env.store, RootID, env.root, "soft/leaf", 2, false)
	assert.True(t, IsCode(err, ErrInvalidArgument))
	assert.Equal(t, 2, env.store.OpenHandles())
}

func TestOpenPath(t *testing.T) {
	env := newTestEnv(t)
	env.mkdir("a", 2)
	b := env.mkdir("a/b", 3)

	id, rd, err := OpenPath(env.ctx, env.store, RootID, env.root, "a/b", 3)
	require.NoError(t, err)
	assert.Equal(t, b.GroupID, id)
	assert.Equal(t, 3, env.store.OpenHandles())
	require.NoError(t, env.store.CloseObject(env.ctx, rd))

	_, _, err = OpenPath(env.ctx, env.store, RootID, env.root, "a/c", 3)
	assert.True(t, IsCode(err, ErrPathNotFound))
	assert.Equal(t, 2, env.store.OpenHandles())
}

func TestLinks(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, InsertLink(env.ctx, env.store, env.root.Write, 2, "x", LinkHard, 77))
	link, err := LookupLink(env.ctx, env.store, env.root.Read, 2, "x")
	require.NoError(t, err)
	assert.Equal(t, Link{Name: "x", Type: LinkHard, Target: 77}, link)

	err = InsertLink(env.ctx, env.store, env.root.Write, 3, "x", LinkHard, 78)
	assert.True(t, IsCode(err, ErrDuplicateName))

	_, err = LookupLink(env.ctx, env.store, env.root.Read, 1, "x")
	assert.True(t, IsCode(err, ErrPathNotFound))

	err = InsertLink(env.ctx, env.store, env.root.Write, 2, "", LinkHard, 1)
	assert.True(t, IsCode(err, ErrInvalidArgument))
}
