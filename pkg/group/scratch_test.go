package group

import (
	"testing"

	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchPad_Encode(t *testing.T) {
	sp := NewGroupScratchPad(0x0102030405060708, 9)
	b := sp.Encode()

	require.Len(t, b, ScratchPadSize)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, b[:8])
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 9}, b[8:16])
	for _, v := range b[16:] {
		assert.Equal(t, byte(0xFF), v)
	}
}

func TestScratchPad_RoundTrip(t *testing.T) {
	sp := NewGroupScratchPad(11, 12)
	b := sp.Encode()

	got, err := DecodeScratchPad(b, IntegrityOn.Sum(b), IntegrityOn)
	require.NoError(t, err)
	assert.Equal(t, sp, got)
	assert.Equal(t, object.ObjectID(11), got.MDKV())
	assert.Equal(t, object.ObjectID(12), got.AttrKV())
	assert.False(t, got[2].IsDefined())
	assert.False(t, got[3].IsDefined())
}

func TestDecodeScratchPad_Integrity(t *testing.T) {
	b := NewGroupScratchPad(1, 2).Encode()
	cs := IntegrityOn.Sum(b)
	b[3] ^= 0x10

	tests := []struct {
		name    string
		cs      object.Checksum
		policy  IntegrityPolicy
		wantErr bool
	}{
		{"OnWithChecksum", cs, IntegrityOn, true},
		{"OnWithoutChecksum", object.NoChecksum, IntegrityOn, false},
		{"OffWithChecksum", cs, IntegrityOff, false},
		{"OffWithoutChecksum", object.NoChecksum, IntegrityOff, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeScratchPad(b, tt.cs, tt.policy)
			if tt.wantErr {
				assert.True(t, IsCode(err, ErrIntegrity))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeScratchPad_WrongSize(t *testing.T) {
	_, err := DecodeScratchPad(make([]byte, ScratchPadSize-1), object.NoChecksum, IntegrityOff)
	assert.True(t, IsCode(err, ErrIntegrity))
}

func TestPolicyFromScope(t *testing.T) {
	assert.Equal(t, IntegrityOff, PolicyFromScope(ChecksumNone))
	assert.Equal(t, IntegrityOff, PolicyFromScope(ChecksumTransfer|ChecksumMemory))
	assert.Equal(t, IntegrityOn, PolicyFromScope(ChecksumStore))
	assert.Equal(t, IntegrityOn, PolicyFromScope(ChecksumTransfer|ChecksumStore))
}

func TestIntegrityPolicy_Sum(t *testing.T) {
	b := []byte("record")
	assert.Equal(t, object.NoChecksum, IntegrityOff.Sum(b))

	cs := IntegrityOn.Sum(b)
	assert.True(t, cs.Present)
	assert.Equal(t, Checksum(b), cs.Value)
}
