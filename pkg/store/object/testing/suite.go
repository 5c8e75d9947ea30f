// Package testing provides a conformance suite that every object.Container
// backend must pass.
package testing

import (
	"context"
	"sync"
	"testing"

	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite runs the container contract against a backend.
type StoreTestSuite struct {
	// NewStore is a factory function that creates a fresh, empty Container
	// for each test. This ensures test isolation.
	NewStore func(t *testing.T) object.Container
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Lifecycle", suite.RunLifecycleTests)
	t.Run("Scratch", suite.RunScratchTests)
	t.Run("KV", suite.RunKVTests)
	t.Run("Transactions", suite.RunTransactionTests)
}

func testContext() context.Context {
	return context.Background()
}

// mustCreate creates a KV object and fails the test on error.
func mustCreate(t *testing.T, c object.Container, wtid object.TransID, id object.ObjectID) {
	t.Helper()
	require.NoError(t, c.Create(testContext(), wtid, object.TypeKV, id))
}

// openPair opens id for read and write.
func openPair(t *testing.T, c object.Container, id object.ObjectID) object.HandlePair {
	t.Helper()
	rd, err := c.OpenRead(testContext(), id)
	require.NoError(t, err)
	wr, err := c.OpenWrite(testContext(), id)
	require.NoError(t, err)
	return object.HandlePair{Read: rd, Write: wr}
}

// AssertStoreCode checks that err wraps a StoreError with the given code.
func AssertStoreCode(t *testing.T, expected object.ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, object.IsCode(err, expected), "expected store code %s, got %v", expected, err)
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

// RunLifecycleTests covers object creation, opening and handle release.
func (suite *StoreTestSuite) RunLifecycleTests(test *testing.T) {
	test.Run("CreateAndOpen", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)

		pair := openPair(t, c, 10)
		assert.True(t, pair.IsDefined())
		assert.NotEqual(t, pair.Read, pair.Write)

		require.NoError(t, c.CloseObject(testContext(), pair.Read))
		require.NoError(t, c.CloseObject(testContext(), pair.Write))
	})

	test.Run("CreateDuplicateID", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)

		err := c.Create(testContext(), 2, object.TypeKV, 10)
		AssertStoreCode(t, object.ErrAlreadyExists, err)
	})

	test.Run("CreateUndefinedID", func(t *testing.T) {
		c := suite.NewStore(t)
		err := c.Create(testContext(), 1, object.TypeKV, object.UndefinedID)
		AssertStoreCode(t, object.ErrInvalidArgument, err)
	})

	test.Run("OpenMissing", func(t *testing.T) {
		c := suite.NewStore(t)
		_, err := c.OpenRead(testContext(), 99)
		AssertStoreCode(t, object.ErrNotFound, err)
		_, err = c.OpenWrite(testContext(), 99)
		AssertStoreCode(t, object.ErrNotFound, err)
	})

	test.Run("CloseTwice", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		rd, err := c.OpenRead(testContext(), 10)
		require.NoError(t, err)

		require.NoError(t, c.CloseObject(testContext(), rd))
		AssertStoreCode(t, object.ErrInvalidHandle, c.CloseObject(testContext(), rd))
	})

	test.Run("CloseUndefined", func(t *testing.T) {
		c := suite.NewStore(t)
		AssertStoreCode(t, object.ErrInvalidHandle, c.CloseObject(testContext(), object.UndefinedHandle))
	})

	test.Run("HandlesAreDistinct", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)

		seen := make(map[object.Handle]bool)
		for i := 0; i < 10; i++ {
			h, err := c.OpenRead(testContext(), 10)
			require.NoError(t, err)
			assert.False(t, seen[h], "handle %s issued twice", h)
			assert.True(t, h.IsDefined())
			seen[h] = true
		}
	})

	test.Run("AllocateIDs", func(t *testing.T) {
		c := suite.NewStore(t)
		first, err := c.AllocateIDs(testContext(), 3)
		require.NoError(t, err)
		second, err := c.AllocateIDs(testContext(), 1)
		require.NoError(t, err)

		assert.True(t, first.IsDefined())
		assert.GreaterOrEqual(t, uint64(second), uint64(first)+3)

		_, err = c.AllocateIDs(testContext(), 0)
		AssertStoreCode(t, object.ErrInvalidArgument, err)
	})
}

// ============================================================================
// Scratch Tests
// ============================================================================

// RunScratchTests covers side payload storage and versioning.
func (suite *StoreTestSuite) RunScratchTests(test *testing.T) {
	test.Run("RoundTrip", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.SetScratch(testContext(), pair.Write, 1, []byte("pad"), object.WithChecksum(42)))

		sp, err := c.GetScratch(testContext(), pair.Read, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("pad"), sp.Data)
		assert.Equal(t, object.WithChecksum(42), sp.Checksum)
	})

	test.Run("WithoutChecksum", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.SetScratch(testContext(), pair.Write, 1, []byte("pad"), object.NoChecksum))

		sp, err := c.GetScratch(testContext(), pair.Read, 1)
		require.NoError(t, err)
		assert.False(t, sp.Checksum.Present)
	})

	test.Run("VersionedReads", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.SetScratch(testContext(), pair.Write, 2, []byte("v2"), object.NoChecksum))
		require.NoError(t, c.SetScratch(testContext(), pair.Write, 5, []byte("v5"), object.NoChecksum))

		_, err := c.GetScratch(testContext(), pair.Read, 1)
		AssertStoreCode(t, object.ErrNotFound, err)

		sp, err := c.GetScratch(testContext(), pair.Read, 4)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), sp.Data)

		sp, err = c.GetScratch(testContext(), pair.Read, 9)
		require.NoError(t, err)
		assert.Equal(t, []byte("v5"), sp.Data)
	})

	test.Run("WrongMode", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		err := c.SetScratch(testContext(), pair.Read, 1, []byte("pad"), object.NoChecksum)
		AssertStoreCode(t, object.ErrWrongMode, err)

		_, err = c.GetScratch(testContext(), pair.Write, 1)
		AssertStoreCode(t, object.ErrWrongMode, err)
	})
}

// ============================================================================
// KV Tests
// ============================================================================

// RunKVTests covers key-value access.
func (suite *StoreTestSuite) RunKVTests(test *testing.T) {
	test.Run("SetGet", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.Set(testContext(), pair.Write, 1, []byte("k"), []byte("v")))
		val, err := c.Get(testContext(), pair.Read, 1, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)
	})

	test.Run("GetMissing", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		_, err := c.Get(testContext(), pair.Read, 1, []byte("nope"))
		AssertStoreCode(t, object.ErrNotFound, err)
	})

	test.Run("KeysArePrefixSafe", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.Set(testContext(), pair.Write, 1, []byte("ab"), []byte("long")))

		_, err := c.Get(testContext(), pair.Read, 1, []byte("a"))
		AssertStoreCode(t, object.ErrNotFound, err)
	})

	test.Run("SetOverwritesWithinSnapshot", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.Set(testContext(), pair.Write, 1, []byte("k"), []byte("old")))
		require.NoError(t, c.Set(testContext(), pair.Write, 3, []byte("k"), []byte("new")))

		val, err := c.Get(testContext(), pair.Read, 2, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("old"), val)

		val, err = c.Get(testContext(), pair.Read, 3, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), val)
	})

	test.Run("InsertExclusive", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.Insert(testContext(), pair.Write, 1, []byte("name"), []byte("a")))
		err := c.Insert(testContext(), pair.Write, 2, []byte("name"), []byte("b"))
		AssertStoreCode(t, object.ErrAlreadyExists, err)

		val, err := c.Get(testContext(), pair.Read, 2, []byte("name"))
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), val)
	})

	test.Run("ConcurrentInsertOneWinner", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)

		const workers = 8
		var wg sync.WaitGroup
		results := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				wr, err := c.OpenWrite(testContext(), 10)
				if err != nil {
					results[i] = err
					return
				}
				defer func() { _ = c.CloseObject(testContext(), wr) }()
				results[i] = c.Insert(testContext(), wr, object.TransID(i+1), []byte("race"), []byte{byte(i)})
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
				continue
			}
			AssertStoreCode(t, object.ErrAlreadyExists, err)
		}
		assert.Equal(t, 1, winners)
	})

	test.Run("EmptyKey", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		err := c.Set(testContext(), pair.Write, 1, nil, []byte("v"))
		AssertStoreCode(t, object.ErrInvalidArgument, err)
	})
}

// ============================================================================
// Transaction Tests
// ============================================================================

// RunTransactionTests covers Abort semantics.
func (suite *StoreTestSuite) RunTransactionTests(test *testing.T) {
	test.Run("AbortDiscardsCreate", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 7, 10)

		require.NoError(t, c.Abort(testContext(), 7))

		_, err := c.OpenRead(testContext(), 10)
		AssertStoreCode(t, object.ErrNotFound, err)

		// The ID is free again under a new transaction.
		mustCreate(t, c, 8, 10)
	})

	test.Run("AbortDiscardsWritesOnly", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.Set(testContext(), pair.Write, 1, []byte("k"), []byte("kept")))
		require.NoError(t, c.Set(testContext(), pair.Write, 2, []byte("k"), []byte("dropped")))
		require.NoError(t, c.Insert(testContext(), pair.Write, 2, []byte("link"), []byte("x")))

		require.NoError(t, c.Abort(testContext(), 2))

		val, err := c.Get(testContext(), pair.Read, 5, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("kept"), val)

		// The exclusive key is free again.
		require.NoError(t, c.Insert(testContext(), pair.Write, 3, []byte("link"), []byte("y")))
	})

	test.Run("AbortedTransactionRejectsWrites", func(t *testing.T) {
		c := suite.NewStore(t)
		mustCreate(t, c, 1, 10)
		pair := openPair(t, c, 10)

		require.NoError(t, c.Abort(testContext(), 2))
		err := c.Set(testContext(), pair.Write, 2, []byte("k"), []byte("v"))
		AssertStoreCode(t, object.ErrInvalidArgument, err)
	})
}
