package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/marmos91/dittoiod/pkg/config"
	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/marmos91/dittoiod/pkg/store/object/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T) *config.Runtime {
	t.Helper()
	rt, err := config.InitializeRuntime(context.Background(), config.GetDefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func openHandles(t *testing.T, rt *config.Runtime) int {
	t.Helper()
	c, ok := rt.Container.Container.(*memory.MemoryContainer)
	require.True(t, ok)
	return c.OpenHandles()
}

func mkdir(t *testing.T, rt *config.Runtime, clock *transClock, parents bool, paths ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runMkdir(context.Background(), rt, paths, mkdirOptions{Parents: parents, Trans: clock}, &out)
	return out.String(), err
}

func TestMkdirAndStat(t *testing.T) {
	rt := newRuntime(t)
	clock := newTransClock(10)

	out, err := mkdir(t, rt, clock, true, "/a/b/c", "a/d")
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c\tok\na/d\tok\n", out)

	var stat bytes.Buffer
	require.NoError(t, runStat(context.Background(), rt, []string{"a/b/c", "a/d"}, latest, &stat))
	lines := strings.Split(strings.TrimSpace(stat.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, "links=1")
		assert.Contains(t, line, string(group.DefaultCreateProps))
	}

	// Every reply's handles were released again; only the root stays open.
	assert.Equal(t, 2, openHandles(t, rt))
}

func TestMkdir_Duplicate(t *testing.T) {
	rt := newRuntime(t)
	clock := newTransClock(10)

	_, err := mkdir(t, rt, clock, false, "x")
	require.NoError(t, err)

	out, err := mkdir(t, rt, clock, false, "x")
	assert.Error(t, err)
	assert.Equal(t, "x\tduplicate_name\n", out)

	_, err = mkdir(t, rt, clock, true, "x")
	assert.NoError(t, err)
	assert.Equal(t, 2, openHandles(t, rt))
}

func TestMkdir_MissingParent(t *testing.T) {
	rt := newRuntime(t)

	out, err := mkdir(t, rt, newTransClock(10), false, "no/such")
	assert.Error(t, err)
	assert.Equal(t, "no/such\tpath_not_found\n", out)
	assert.Equal(t, 2, openHandles(t, rt))
}

func TestMkdir_CustomProps(t *testing.T) {
	rt := newRuntime(t)
	var out bytes.Buffer
	require.NoError(t, runMkdir(context.Background(), rt, []string{"p"}, mkdirOptions{
		Props: group.PropertyList("chunked"),
		Trans: newTransClock(10),
	}, &out))

	reply, err := openOne(context.Background(), rt, "p", latest)
	require.NoError(t, err)
	assert.Equal(t, group.PropertyList("chunked"), reply.CreateProps)
	require.NoError(t, closeGroup(context.Background(), rt, reply.Handles))
}

func TestStat_ReadContext(t *testing.T) {
	rt := newRuntime(t)
	_, err := mkdir(t, rt, newTransClock(100), false, "late")
	require.NoError(t, err)

	var out bytes.Buffer
	err = runStat(context.Background(), rt, []string{"late"}, 50, &out)
	assert.Error(t, err)
	assert.Equal(t, "late\tpath_not_found\n", out.String())
}

func TestLink(t *testing.T) {
	rt := newRuntime(t)
	clock := newTransClock(10)
	_, err := mkdir(t, rt, clock, true, "a/b")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runLink(context.Background(), rt, "a/b", "alias", clock, &out))
	assert.Equal(t, "alias\t-> a/b (links=2)\n", out.String())

	orig, err := openOne(context.Background(), rt, "a/b", latest)
	require.NoError(t, err)
	alias, err := openOne(context.Background(), rt, "alias", latest)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, alias.ID)
	assert.Equal(t, uint64(2), alias.LinkCount)
	require.NoError(t, closeGroup(context.Background(), rt, orig.Handles))
	require.NoError(t, closeGroup(context.Background(), rt, alias.Handles))

	assert.Error(t, runLink(context.Background(), rt, "a/b", "alias", clock, &out))
	assert.Error(t, runLink(context.Background(), rt, "missing", "other", clock, &out))
	assert.Equal(t, 2, openHandles(t, rt))
}

func TestPrefixes(t *testing.T) {
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, prefixes("/a//b/c/"))
	assert.Empty(t, prefixes("/"))
}

func TestTransClock(t *testing.T) {
	c := newTransClock(5)
	assert.EqualValues(t, 5, c.Next())
	assert.EqualValues(t, 6, c.Next())

	assert.NotZero(t, newTransClock(0).Next())
	assert.Equal(t, latest, readContext(0))
	assert.EqualValues(t, 7, readContext(7))
}

func TestConfigSchema(t *testing.T) {
	data, err := configSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"logging", "container", "integrity", "groups", "engine", "metrics"} {
		assert.Contains(t, props, key)
	}
}
