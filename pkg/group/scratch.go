package group

import (
	"encoding/binary"
	"fmt"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

const (
	scratchSlots = 4

	// ScratchPadSize is the encoded size of a ScratchPad in bytes.
	ScratchPadSize = scratchSlots * 8
)

// ScratchPad is the cross-reference record stored as a group's side
// payload: [metadata KV, attribute KV, reserved, reserved].
//
// The reserved slots are always object.UndefinedID for groups; other node
// kinds sharing the layout may use them.
type ScratchPad [scratchSlots]object.ObjectID

// NewGroupScratchPad returns the record for a group whose metadata and
// attribute stores are mdkv and attrkv.
func NewGroupScratchPad(mdkv, attrkv object.ObjectID) ScratchPad {
	return ScratchPad{mdkv, attrkv, object.UndefinedID, object.UndefinedID}
}

// MDKV returns the metadata-store object ID.
func (sp ScratchPad) MDKV() object.ObjectID { return sp[0] }

// AttrKV returns the attribute-store object ID.
func (sp ScratchPad) AttrKV() object.ObjectID { return sp[1] }

// Encode returns the 32-byte big-endian encoding of the record.
func (sp ScratchPad) Encode() []byte {
	buf := make([]byte, ScratchPadSize)
	for i, id := range sp {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(id))
	}
	return buf
}

// DecodeScratchPad verifies b against cs under policy and decodes it.
//
// Verification happens before decoding, so a corrupted record is reported as
// ErrIntegrity even if it would still decode.
func DecodeScratchPad(b []byte, cs object.Checksum, policy IntegrityPolicy) (ScratchPad, error) {
	var sp ScratchPad
	if err := policy.Verify(b, cs); err != nil {
		return sp, err
	}
	if len(b) != ScratchPadSize {
		return sp, newError(ErrIntegrity, "decode scratch pad", "",
			fmt.Errorf("expected %d bytes, got %d", ScratchPadSize, len(b)))
	}
	for i := range sp {
		sp[i] = object.ObjectID(binary.BigEndian.Uint64(b[i*8:]))
	}
	return sp, nil
}
