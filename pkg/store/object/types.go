package object

import (
	"fmt"
	"math"
)

// ============================================================================
// Identifiers and Handles
// ============================================================================

// ObjectID names a storage object across transaction epochs.
//
// IDs are allocated either by the caller (clients reserve ranges and send
// the IDs of the objects they want created) or by the container through
// AllocateIDs. Once an object has been created under an ID, the ID is
// immutable and never reused for a different object.
type ObjectID uint64

// UndefinedID is the reserved identifier that never names a live object.
//
// It is used in cross-reference slots that are not populated and in every
// identifier field of a failure reply.
const UndefinedID ObjectID = math.MaxUint64

// IsDefined reports whether id is not the UndefinedID sentinel.
func (id ObjectID) IsDefined() bool {
	return id != UndefinedID
}

// String renders the ID in hex, or "undefined" for the sentinel.
func (id ObjectID) String() string {
	if id == UndefinedID {
		return "undefined"
	}
	return fmt.Sprintf("0x%x", uint64(id))
}

// Handle is an opaque cookie for one open instance of an object.
//
// Handles are issued by OpenRead/OpenWrite and are valid until CloseObject
// is called on them exactly once. A handle is either read-mode or
// write-mode; the store rejects writes through read handles and reads
// through write handles.
type Handle uint64

// UndefinedHandle is the reserved handle value that is never issued.
const UndefinedHandle Handle = math.MaxUint64

// IsDefined reports whether h is not the UndefinedHandle sentinel.
func (h Handle) IsDefined() bool {
	return h != UndefinedHandle
}

// String renders the handle cookie, or "undefined" for the sentinel.
func (h Handle) String() string {
	if h == UndefinedHandle {
		return "undefined"
	}
	return fmt.Sprintf("%d", uint64(h))
}

// HandlePair holds the two independently opened handles of one object.
//
// The store distinguishes read-optimized and write-optimized access, so a
// fully opened object carries one handle of each mode. Either half may be
// UndefinedHandle (for example after OpenPath, which only opens for read).
type HandlePair struct {
	Read  Handle `json:"read"`
	Write Handle `json:"write"`
}

// UndefinedPair returns a pair whose halves are both UndefinedHandle.
func UndefinedPair() HandlePair {
	return HandlePair{Read: UndefinedHandle, Write: UndefinedHandle}
}

// IsDefined reports whether both halves are defined.
func (p HandlePair) IsDefined() bool {
	return p.Read.IsDefined() && p.Write.IsDefined()
}

// IsUndefined reports whether both halves are the sentinel.
func (p HandlePair) IsUndefined() bool {
	return !p.Read.IsDefined() && !p.Write.IsDefined()
}

// Equal compares both halves. Two undefined halves compare equal.
func (p HandlePair) Equal(other HandlePair) bool {
	return p.Read == other.Read && p.Write == other.Write
}

// String renders the pair as "{rd=<h> wr=<h>}".
func (p HandlePair) String() string {
	return fmt.Sprintf("{rd=%s wr=%s}", p.Read, p.Write)
}

// ============================================================================
// Transactions
// ============================================================================

// TransID numbers a transaction epoch.
//
// The same type is used for write-transaction numbers (every mutation is
// tagged with one) and read-context numbers (a snapshot version: a read at
// context N observes exactly the writes made under transaction numbers <= N
// that have not been aborted).
type TransID uint64

// ============================================================================
// Object Types and Side Payloads
// ============================================================================

// ObjectType is the storage layout of an object.
type ObjectType uint8

const (
	// TypeKV is a key-value object. Groups, metadata stores and attribute
	// stores are all KV objects.
	TypeKV ObjectType = iota + 1

	// TypeArray is a multi-dimensional array object (datasets).
	TypeArray

	// TypeBlob is an unstructured byte object.
	TypeBlob
)

// String returns the lowercase layout name.
func (t ObjectType) String() string {
	switch t {
	case TypeKV:
		return "kv"
	case TypeArray:
		return "array"
	case TypeBlob:
		return "blob"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Checksum is an integrity value stored alongside a side payload.
//
// Present is false when the payload was written without a checksum, in
// which case Value carries no meaning.
type Checksum struct {
	Value   uint64 `json:"value"`
	Present bool   `json:"present"`
}

// NoChecksum is the zero Checksum: nothing stored.
var NoChecksum = Checksum{}

// WithChecksum returns a present checksum holding v.
func WithChecksum(v uint64) Checksum {
	return Checksum{Value: v, Present: true}
}

// Scratch is the per-object side payload ("scratch pad") and its checksum.
type Scratch struct {
	Data     []byte   `json:"data"`
	Checksum Checksum `json:"checksum"`
}
