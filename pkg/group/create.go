package group

import (
	"context"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// groupIDs names the three objects that make up a group.
type groupIDs struct {
	group  object.ObjectID
	mdkv   object.ObjectID
	attrkv object.ObjectID
}

// createGroup runs the creation protocol for req:
//
//  1. resolve the parent of req.Name
//  2. create the group object and open it for read and write
//  3. create the metadata and attribute KVs
//  4. write the cross-reference record, checksummed under the policy
//  5. insert the three metadata records
//  6. insert the link into the parent, which publishes the group
//  7. release the parent unless it aliases the start handles
//
// The first failure ends the request. Nothing is rolled back: objects
// created before the failure belong to req.TransNum and are discarded when
// that transaction is aborted. Every handle opened here is closed on every
// path except the group's own pair on success.
func createGroup(ctx context.Context, req *CreateRequest, props PropertyList) (object.HandlePair, error) {
	if err := req.validate(); err != nil {
		return object.UndefinedPair(), err
	}
	c := req.Container
	policy := PolicyFromScope(req.ChecksumScope)

	scope := newHandleScope(ctx, c)
	defer scope.Close()

	loc, err := Traverse(ctx, c, req.LocID, req.LocHandles, req.Name, req.RcxtNum, false)
	if err != nil {
		return object.UndefinedPair(), err
	}
	if !loc.Aliased() {
		scope.trackPair(loc.Handles)
	}

	ids := groupIDs{group: req.GroupID, mdkv: req.MDKVID, attrkv: req.AttrKVID}
	pair, err := buildGroup(ctx, scope, c, req.TransNum, policy, ids, props)
	if err != nil {
		return object.UndefinedPair(), err
	}

	if err := InsertLink(ctx, c, loc.Handles.Write, req.TransNum, loc.Last, LinkHard, req.GroupID); err != nil {
		return object.UndefinedPair(), err
	}

	if !loc.Aliased() {
		if err := scope.release(loc.Handles.Read, loc.Handles.Write); err != nil {
			return object.UndefinedPair(), storeFailure("close parent", req.Name, err)
		}
	}

	scope.keep(pair.Read, pair.Write)
	return pair, nil
}

// buildGroup creates the three objects of a group, writes its
// cross-reference record and metadata, and returns the group's open handle
// pair. The pair is tracked by scope; callers keep it on success.
func buildGroup(ctx context.Context, scope *handleScope, c object.Container, wtid object.TransID,
	policy IntegrityPolicy, ids groupIDs, props PropertyList) (object.HandlePair, error) {
	if err := c.Create(ctx, wtid, object.TypeKV, ids.group); err != nil {
		return object.UndefinedPair(), storeFailure("create group object", "", err)
	}
	pair, err := scope.openPair(ids.group)
	if err != nil {
		return object.UndefinedPair(), storeFailure("open group object", "", err)
	}

	if err := c.Create(ctx, wtid, object.TypeKV, ids.mdkv); err != nil {
		return object.UndefinedPair(), storeFailure("create metadata kv", "", err)
	}
	if err := c.Create(ctx, wtid, object.TypeKV, ids.attrkv); err != nil {
		return object.UndefinedPair(), storeFailure("create attribute kv", "", err)
	}

	pad := NewGroupScratchPad(ids.mdkv, ids.attrkv).Encode()
	if err := c.SetScratch(ctx, pair.Write, wtid, pad, policy.Sum(pad)); err != nil {
		return object.UndefinedPair(), storeFailure("write scratch pad", "", err)
	}

	md, err := c.OpenWrite(ctx, ids.mdkv)
	if err != nil {
		return object.UndefinedPair(), storeFailure("open metadata kv", "", err)
	}
	scope.track(md)

	if err := InsertGroupMetadata(ctx, c, md, wtid, props); err != nil {
		return object.UndefinedPair(), err
	}
	if err := scope.release(md); err != nil {
		return object.UndefinedPair(), storeFailure("close metadata kv", "", err)
	}
	return pair, nil
}

// AllocateGroupIDs reserves the three object IDs a CreateRequest needs.
func AllocateGroupIDs(ctx context.Context, c object.Container) (group, mdkv, attrkv object.ObjectID, err error) {
	first, err := c.AllocateIDs(ctx, 3)
	if err != nil {
		return object.UndefinedID, object.UndefinedID, object.UndefinedID, storeFailure("allocate group ids", "", err)
	}
	return first, first + 1, first + 2, nil
}
