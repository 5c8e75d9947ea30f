package group

import (
	"context"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/store/object"
)

type openResult struct {
	id        object.ObjectID
	handles   object.HandlePair
	pad       ScratchPad
	props     PropertyList
	linkCount uint64
}

// openGroup resolves req.Name to an existing group and opens it.
//
// The group's identity comes from its cross-reference record, which is
// verified when the request's scope enables integrity and a checksum was
// stored. Metadata retrieval is best-effort: when the store cannot provide
// the creation properties or link count, defaults and a link count of 1
// are returned instead of failing the open.
func openGroup(ctx context.Context, req *OpenRequest, defaults PropertyList) (*openResult, error) {
	if req.Container == nil {
		return nil, newError(ErrInvalidArgument, "open group", req.Name, nil)
	}
	c := req.Container
	policy := PolicyFromScope(req.ChecksumScope)

	scope := newHandleScope(ctx, c)
	defer scope.Close()

	id, rd, err := OpenPath(ctx, c, req.LocID, req.LocHandles, req.Name, req.RcxtNum)
	if err != nil {
		return nil, err
	}
	scope.track(rd)

	wr, err := c.OpenWrite(ctx, id)
	if err != nil {
		return nil, storeFailure("open group for write", req.Name, err)
	}
	scope.track(wr)

	raw, err := c.GetScratch(ctx, rd, req.RcxtNum)
	if err != nil {
		return nil, storeFailure("read scratch pad", req.Name, err)
	}
	pad, err := DecodeScratchPad(raw.Data, raw.Checksum, policy)
	if err != nil {
		if gerr, ok := err.(*Error); ok {
			gerr.Path = req.Name
		}
		return nil, err
	}

	props, count, err := readGroupMetadata(ctx, scope, c, pad.MDKV(), req.RcxtNum, defaults)
	if err != nil {
		return nil, err
	}

	scope.keep(rd, wr)
	return &openResult{
		id:        id,
		handles:   object.HandlePair{Read: rd, Write: wr},
		pad:       pad,
		props:     props,
		linkCount: count,
	}, nil
}

// readGroupMetadata reads the creation properties and link count from the
// metadata KV, substituting defaults for records the store cannot provide.
func readGroupMetadata(ctx context.Context, scope *handleScope, c object.Container, mdkv object.ObjectID,
	rtid object.TransID, defaults PropertyList) (PropertyList, uint64, error) {
	props, count := defaults.clone(), uint64(1)

	md, err := c.OpenRead(ctx, mdkv)
	if err != nil {
		if metadataUnavailable(err) {
			logger.Warn("group: metadata kv %s unavailable, using defaults: %v", mdkv, err)
			return props, count, nil
		}
		return nil, 0, storeFailure("open metadata kv", "", err)
	}
	scope.track(md)

	stored, err := LookupCreateProps(ctx, c, md, rtid)
	switch {
	case err == nil:
		props = stored
	case metadataUnavailable(err):
		logger.Debug("group: create props of %s unavailable, using default", mdkv)
	default:
		return nil, 0, err
	}

	n, err := LookupLinkCount(ctx, c, md, rtid)
	switch {
	case err == nil:
		count = n
	case metadataUnavailable(err):
		logger.Debug("group: link count of %s unavailable, using 1", mdkv)
	default:
		return nil, 0, err
	}

	if err := scope.release(md); err != nil {
		return nil, 0, storeFailure("close metadata kv", "", err)
	}
	return props, count, nil
}
