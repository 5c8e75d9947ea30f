package group

import (
	"context"
	"fmt"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// LinkType is the kind of a link table entry.
type LinkType uint32

const (
	LinkHard LinkType = 0
	LinkSoft LinkType = 1
)

func (t LinkType) String() string {
	switch t {
	case LinkHard:
		return "hard"
	case LinkSoft:
		return "soft"
	default:
		return fmt.Sprintf("LinkType(%d)", uint32(t))
	}
}

// Link is one entry of a parent's link table.
type Link struct {
	Name   string
	Type   LinkType
	Target object.ObjectID
}

// linkRecord is the XDR layout of a link value. The name is the key.
type linkRecord struct {
	Type   uint32
	Target uint64
}

// InsertLink publishes a link under parent. Name uniqueness is left to the
// store's exclusive insert; a collision yields ErrDuplicateName.
func InsertLink(ctx context.Context, c object.Container, parent object.Handle, wtid object.TransID,
	name string, typ LinkType, target object.ObjectID) error {
	if name == "" {
		return newError(ErrInvalidArgument, "insert link", name, nil)
	}
	value, err := marshalRecord(&linkRecord{Type: uint32(typ), Target: uint64(target)})
	if err != nil {
		return newError(ErrInvalidArgument, "encode link", name, err)
	}

	err = c.Insert(ctx, parent, wtid, []byte(name), value)
	if object.IsCode(err, object.ErrAlreadyExists) {
		return newError(ErrDuplicateName, "insert link", name, err)
	}
	if err != nil {
		return storeFailure("insert link", name, err)
	}
	return nil
}

// LookupLink reads the link called name under parent at rtid.
func LookupLink(ctx context.Context, c object.Container, parent object.Handle, rtid object.TransID, name string) (Link, error) {
	value, err := c.Get(ctx, parent, rtid, []byte(name))
	if object.IsCode(err, object.ErrNotFound) {
		return Link{}, newError(ErrPathNotFound, "lookup link", name, err)
	}
	if err != nil {
		return Link{}, storeFailure("lookup link", name, err)
	}

	var rec linkRecord
	if err := unmarshalRecord(value, &rec); err != nil {
		return Link{}, newError(ErrStore, "decode link", name, err)
	}
	return Link{Name: name, Type: LinkType(rec.Type), Target: object.ObjectID(rec.Target)}, nil
}

// CreateHardLink links an existing group under parent with a new name and
// increments the target's link count.
//
// The target's metadata KV is located through its cross-reference record,
// which is verified under policy.
func CreateHardLink(ctx context.Context, c object.Container, parent object.Handle, wtid object.TransID,
	name string, target object.ObjectID, policy IntegrityPolicy) (uint64, error) {
	scope := newHandleScope(ctx, c)
	defer scope.Close()

	rd, err := c.OpenRead(ctx, target)
	if err != nil {
		return 0, storeFailure("open link target", name, err)
	}
	scope.track(rd)

	pad, err := c.GetScratch(ctx, rd, wtid)
	if err != nil {
		return 0, storeFailure("read link target scratch pad", name, err)
	}
	sp, err := DecodeScratchPad(pad.Data, pad.Checksum, policy)
	if err != nil {
		return 0, err
	}

	md, err := scope.openPair(sp.MDKV())
	if err != nil {
		return 0, storeFailure("open link target metadata", name, err)
	}

	if err := InsertLink(ctx, c, parent, wtid, name, LinkHard, target); err != nil {
		return 0, err
	}
	return IncrementLinkCount(ctx, c, md, wtid)
}
