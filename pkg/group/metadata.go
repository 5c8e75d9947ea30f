package group

import (
	"bytes"
	"context"
	"fmt"

	"github.com/marmos91/dittoiod/pkg/store/object"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// ObjectKind is the type tag stored in an object's metadata KV.
type ObjectKind uint32

const (
	KindGroup ObjectKind = 1
)

func (k ObjectKind) String() string {
	if k == KindGroup {
		return "group"
	}
	return fmt.Sprintf("ObjectKind(%d)", uint32(k))
}

// Metadata record keys. Each group's metadata KV holds exactly these three
// records after creation.
var (
	keyCreateProps = []byte("create-props")
	keyLinkCount   = []byte("link-count")
	keyObjectType  = []byte("object-type")
)

// linkCountRecord and objectTypeRecord are the XDR layouts of the fixed
// width metadata values.
type linkCountRecord struct {
	Count uint64
}

type objectTypeRecord struct {
	Kind uint32
}

func marshalRecord(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalRecord(data []byte, v any) error {
	_, err := xdr.Unmarshal(bytes.NewReader(data), v)
	return err
}

// InsertCreateProps stores the creation property list.
func InsertCreateProps(ctx context.Context, c object.Container, md object.Handle, wtid object.TransID, props PropertyList) error {
	if err := c.Insert(ctx, md, wtid, keyCreateProps, props); err != nil {
		return storeFailure("insert create props", "", err)
	}
	return nil
}

// InsertLinkCount stores the initial link count.
func InsertLinkCount(ctx context.Context, c object.Container, md object.Handle, wtid object.TransID, count uint64) error {
	value, err := marshalRecord(&linkCountRecord{Count: count})
	if err != nil {
		return newError(ErrInvalidArgument, "encode link count", "", err)
	}
	if err := c.Insert(ctx, md, wtid, keyLinkCount, value); err != nil {
		return storeFailure("insert link count", "", err)
	}
	return nil
}

// InsertObjectType stores the object type tag.
func InsertObjectType(ctx context.Context, c object.Container, md object.Handle, wtid object.TransID, kind ObjectKind) error {
	value, err := marshalRecord(&objectTypeRecord{Kind: uint32(kind)})
	if err != nil {
		return newError(ErrInvalidArgument, "encode object type", "", err)
	}
	if err := c.Insert(ctx, md, wtid, keyObjectType, value); err != nil {
		return storeFailure("insert object type", "", err)
	}
	return nil
}

// InsertGroupMetadata performs the three inserts made at group creation.
func InsertGroupMetadata(ctx context.Context, c object.Container, md object.Handle, wtid object.TransID, props PropertyList) error {
	if err := InsertCreateProps(ctx, c, md, wtid, props); err != nil {
		return err
	}
	if err := InsertLinkCount(ctx, c, md, wtid, 1); err != nil {
		return err
	}
	return InsertObjectType(ctx, c, md, wtid, KindGroup)
}

// LookupCreateProps reads the creation property list at rtid.
func LookupCreateProps(ctx context.Context, c object.Container, md object.Handle, rtid object.TransID) (PropertyList, error) {
	value, err := c.Get(ctx, md, rtid, keyCreateProps)
	if err != nil {
		return nil, storeFailure("lookup create props", "", err)
	}
	return PropertyList(value), nil
}

// LookupLinkCount reads the link count at rtid.
func LookupLinkCount(ctx context.Context, c object.Container, md object.Handle, rtid object.TransID) (uint64, error) {
	value, err := c.Get(ctx, md, rtid, keyLinkCount)
	if err != nil {
		return 0, storeFailure("lookup link count", "", err)
	}
	var rec linkCountRecord
	if err := unmarshalRecord(value, &rec); err != nil {
		return 0, newError(ErrStore, "decode link count", "", err)
	}
	return rec.Count, nil
}

// LookupObjectType reads the object type tag at rtid.
func LookupObjectType(ctx context.Context, c object.Container, md object.Handle, rtid object.TransID) (ObjectKind, error) {
	value, err := c.Get(ctx, md, rtid, keyObjectType)
	if err != nil {
		return 0, storeFailure("lookup object type", "", err)
	}
	var rec objectTypeRecord
	if err := unmarshalRecord(value, &rec); err != nil {
		return 0, newError(ErrStore, "decode object type", "", err)
	}
	return ObjectKind(rec.Kind), nil
}

// IncrementLinkCount adds one to the link count and returns the new value.
//
// The current count is read at wtid so that increments made earlier in the
// same transaction are seen.
func IncrementLinkCount(ctx context.Context, c object.Container, md object.HandlePair, wtid object.TransID) (uint64, error) {
	count, err := LookupLinkCount(ctx, c, md.Read, wtid)
	if err != nil {
		return 0, err
	}
	count++
	value, err := marshalRecord(&linkCountRecord{Count: count})
	if err != nil {
		return 0, newError(ErrInvalidArgument, "encode link count", "", err)
	}
	if err := c.Set(ctx, md.Write, wtid, keyLinkCount, value); err != nil {
		return 0, storeFailure("update link count", "", err)
	}
	return count, nil
}

// metadataUnavailable reports whether err means the store cannot provide a
// metadata record, as opposed to a real failure.
func metadataUnavailable(err error) bool {
	return object.IsCode(err, object.ErrNotFound) || object.IsCode(err, object.ErrNotSupported)
}
