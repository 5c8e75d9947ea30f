package badger

import (
	"encoding/binary"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a flat key-value store, so objects, their versioned values and
// the per-transaction bookkeeping are organized into prefixed namespaces.
//
// Key Namespace Prefixes:
//
// Data Type            Prefix   Key Format                                     Value
// ===================================================================================
// Object Records       "o:"     o:<id>                                         objectRecord (JSON)
// Versioned Values     "v:"     v:<id><kind><keylen><key><^tid>                 value bytes
// Undo Log             "u:"     u:<tid><target key>                            empty
// Aborted Markers      "a:"     a:<tid>                                        empty
// ID Sequence          "seq:"   seq:object_id                                  badger.Sequence lease
//
// Numeric fields (<id>, <tid>, <keylen>) are fixed-width big-endian so that
// lexicographic key order matches numeric order.
//
// Versioned Values (v:):
//   - <kind> is 's' for the side payload and 'k' for a KV entry
//   - <keylen> is a 4-byte length so that user keys that are prefixes of
//     each other never share a version range
//   - <^tid> is the bitwise complement of the transaction number, so the
//     versions of one value sort newest-first
//   - A read at context N seeks to <prefix><^N>: the first key at or after
//     the seek point within the prefix is the newest version with tid <= N
//
// Undo Log (u:):
//   - Every object record and versioned value written under a transaction
//     gets an undo entry naming it
//   - Abort scans u:<tid> and deletes every named key plus the entries

const (
	// prefixObject is the key prefix for object records
	prefixObject = "o:"

	// prefixVersion is the key prefix for versioned values
	prefixVersion = "v:"

	// prefixUndo is the key prefix for per-transaction undo entries
	prefixUndo = "u:"

	// prefixAborted is the key prefix for aborted transaction markers
	prefixAborted = "a:"

	// keyIDSequence is the badger sequence used by AllocateIDs
	keyIDSequence = "seq:object_id"
)

const (
	kindScratch byte = 's'
	kindKV      byte = 'k'
)

func putUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// keyObject generates the key of an object record.
//
// Format: "o:<id>"
func keyObject(id object.ObjectID) []byte {
	return putUint64([]byte(prefixObject), uint64(id))
}

// keyValuePrefix generates the prefix shared by all versions of one value.
//
// Format: "v:<id><kind><keylen><key>"
func keyValuePrefix(id object.ObjectID, kind byte, key []byte) []byte {
	buf := make([]byte, 0, len(prefixVersion)+8+1+4+len(key)+8)
	buf = append(buf, prefixVersion...)
	buf = putUint64(buf, uint64(id))
	buf = append(buf, kind)

	var klen [4]byte
	binary.BigEndian.PutUint32(klen[:], uint32(len(key)))
	buf = append(buf, klen[:]...)
	return append(buf, key...)
}

// keyValueVersion generates the key of one version of a value.
//
// Format: "v:<id><kind><keylen><key><^tid>"
func keyValueVersion(prefix []byte, tid object.TransID) []byte {
	buf := make([]byte, 0, len(prefix)+8)
	buf = append(buf, prefix...)
	return putUint64(buf, ^uint64(tid))
}

// keyUndoPrefix generates the prefix of all undo entries of a transaction.
//
// Format: "u:<tid>"
func keyUndoPrefix(tid object.TransID) []byte {
	return putUint64([]byte(prefixUndo), uint64(tid))
}

// keyUndo generates the undo entry for target written under tid.
//
// Format: "u:<tid><target>"
func keyUndo(tid object.TransID, target []byte) []byte {
	return append(keyUndoPrefix(tid), target...)
}

// keyAborted generates the marker key of an aborted transaction.
//
// Format: "a:<tid>"
func keyAborted(tid object.TransID) []byte {
	return putUint64([]byte(prefixAborted), uint64(tid))
}
