package group

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/marmos91/dittoiod/pkg/store/object"
)

// ChecksumScope is the integrity-scope bitmask carried by requests.
type ChecksumScope uint32

const (
	ChecksumNone ChecksumScope = 0

	// ChecksumTransfer covers data on the wire. It is the transport's
	// concern and has no effect here.
	ChecksumTransfer ChecksumScope = 1 << 0

	// ChecksumStore covers records written to the object store. It is the
	// only bit this package looks at.
	ChecksumStore ChecksumScope = 1 << 1

	// ChecksumMemory covers in-memory buffers; ignored here.
	ChecksumMemory ChecksumScope = 1 << 2
)

// IntegrityPolicy decides whether cross-reference records are checksummed
// on write and verified on read.
type IntegrityPolicy struct {
	on bool
}

var (
	IntegrityOn  = IntegrityPolicy{on: true}
	IntegrityOff = IntegrityPolicy{on: false}
)

// PolicyFromScope derives the policy from a request's scope bitmask.
func PolicyFromScope(scope ChecksumScope) IntegrityPolicy {
	if scope&ChecksumStore != 0 {
		return IntegrityOn
	}
	return IntegrityOff
}

// Enabled reports whether checksums are computed and verified.
func (p IntegrityPolicy) Enabled() bool {
	return p.on
}

func (p IntegrityPolicy) String() string {
	if p.on {
		return "on"
	}
	return "off"
}

// Checksum computes the 64-bit checksum of b.
func Checksum(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// Sum returns the checksum to store alongside b, or object.NoChecksum when
// the policy is off.
func (p IntegrityPolicy) Sum(b []byte) object.Checksum {
	if !p.on {
		return object.NoChecksum
	}
	return object.WithChecksum(Checksum(b))
}

// Verify checks b against a stored checksum. Verification is skipped when
// the policy is off or no checksum was stored.
func (p IntegrityPolicy) Verify(b []byte, cs object.Checksum) error {
	if !p.on || !cs.Present {
		return nil
	}
	if got := Checksum(b); got != cs.Value {
		return newError(ErrIntegrity, "verify checksum", "",
			fmt.Errorf("stored %016x, computed %016x", cs.Value, got))
	}
	return nil
}
