package object

import (
	"context"
)

// ============================================================================
// Container Interface
// ============================================================================

// Container is an open session on a versioned object store.
//
// A container owns a flat space of objects addressed by ObjectID. Each
// object can be opened any number of times for read or write; every open
// returns a fresh Handle that must be closed exactly once. Objects carry:
//   - a side payload (scratch pad) with an optional checksum
//   - for KV objects, a key space of byte values
//
// Versioning:
//
// Every mutation is tagged with a write transaction number (TransID).
// Every read is evaluated against a read context: it observes the newest
// value written under a transaction number <= the context, skipping
// transactions that have been aborted. Aborting a transaction discards all
// of its writes, including object creations, which is how partially
// completed multi-step operations are cleaned up.
//
// Exclusivity:
//
// Insert refuses a key that already holds a live value under any
// transaction, so concurrent inserts of the same key resolve with exactly
// one winner and ErrAlreadyExists for the others.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Container interface {
	// Name returns the container name the session was opened for.
	Name() string

	// ========================================================================
	// Object Lifecycle
	// ========================================================================

	// Create creates a new object of the given type under the write
	// transaction wtid.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - wtid: Write transaction number
	//   - typ: Object layout (TypeKV, TypeArray, TypeBlob)
	//   - id: Caller-allocated object ID (must not be UndefinedID)
	//
	// Returns:
	//   - error: ErrAlreadyExists if id is taken, ErrInvalidArgument for an
	//     undefined id or unknown type, or backend errors
	Create(ctx context.Context, wtid TransID, typ ObjectType, id ObjectID) error

	// OpenRead opens an existing object for reading.
	//
	// Returns:
	//   - Handle: A new read-mode handle
	//   - error: ErrNotFound if the object does not exist
	OpenRead(ctx context.Context, id ObjectID) (Handle, error)

	// OpenWrite opens an existing object for writing.
	//
	// Returns:
	//   - Handle: A new write-mode handle
	//   - error: ErrNotFound if the object does not exist
	OpenWrite(ctx context.Context, id ObjectID) (Handle, error)

	// CloseObject releases a handle. Closing a handle twice, or closing the
	// undefined sentinel, fails with ErrInvalidHandle.
	CloseObject(ctx context.Context, h Handle) error

	// ========================================================================
	// Side Payload
	// ========================================================================

	// SetScratch stores the side payload of the object behind a write
	// handle. The checksum is stored verbatim; the container does not
	// verify it.
	SetScratch(ctx context.Context, h Handle, wtid TransID, data []byte, cs Checksum) error

	// GetScratch returns the side payload visible at read context rtid
	// through a read handle.
	//
	// Returns:
	//   - *Scratch: The payload and its stored checksum
	//   - error: ErrNotFound if no payload is visible at rtid
	GetScratch(ctx context.Context, h Handle, rtid TransID) (*Scratch, error)

	// ========================================================================
	// Key-Value Access
	// ========================================================================

	// Set writes key=value in the KV object behind a write handle,
	// replacing any previous value.
	Set(ctx context.Context, h Handle, wtid TransID, key, value []byte) error

	// Insert writes key=value only if key holds no live value.
	//
	// Returns:
	//   - error: ErrAlreadyExists if the key is present under any
	//     non-aborted transaction
	Insert(ctx context.Context, h Handle, wtid TransID, key, value []byte) error

	// Get reads key from the KV object behind a read handle at rtid.
	//
	// Returns:
	//   - []byte: The value (a copy owned by the caller)
	//   - error: ErrNotFound if the key is not visible at rtid
	Get(ctx context.Context, h Handle, rtid TransID, key []byte) ([]byte, error)

	// ========================================================================
	// Transactions and Allocation
	// ========================================================================

	// Abort discards every write made under wtid. Handles stay valid; reads
	// behave as if the transaction never happened.
	Abort(ctx context.Context, wtid TransID) error

	// AllocateIDs reserves n consecutive object IDs and returns the first.
	AllocateIDs(ctx context.Context, n uint64) (ObjectID, error)

	// Close ends the session and releases backend resources. Outstanding
	// handles become invalid.
	Close() error
}
