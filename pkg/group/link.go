package group

import (
	"context"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// linkGroup adds the hard link req.Name to the existing group req.TargetID
// and returns the target's new link count.
func linkGroup(ctx context.Context, req *LinkRequest) (uint64, error) {
	if req.Container == nil || !req.TargetID.IsDefined() {
		return 0, newError(ErrInvalidArgument, "link group", req.Name, nil)
	}
	c := req.Container

	loc, err := Traverse(ctx, c, req.LocID, req.LocHandles, req.Name, req.RcxtNum, false)
	if err != nil {
		return 0, err
	}

	count, err := CreateHardLink(ctx, c, loc.Handles.Write, req.TransNum, loc.Last, req.TargetID,
		PolicyFromScope(req.ChecksumScope))
	if relErr := loc.Release(ctx, c); relErr != nil && err == nil {
		err = storeFailure("close parent", req.Name, relErr)
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RootID is the object ID of a container's root group.
const RootID object.ObjectID = 0

// bootstrapRoot creates the root group of an empty container. The root has
// no parent link; it is reached by its well-known ID. An existing root is
// left untouched.
func bootstrapRoot(ctx context.Context, c object.Container, wtid object.TransID, scope ChecksumScope,
	props PropertyList) (bool, error) {
	if rd, err := c.OpenRead(ctx, RootID); err == nil {
		if err := c.CloseObject(ctx, rd); err != nil {
			return false, storeFailure("close root group", PathSeparator, err)
		}
		return false, nil
	} else if !object.IsCode(err, object.ErrNotFound) {
		return false, storeFailure("open root group", PathSeparator, err)
	}

	first, err := c.AllocateIDs(ctx, 2)
	if err != nil {
		return false, storeFailure("allocate root ids", PathSeparator, err)
	}

	hs := newHandleScope(ctx, c)
	defer hs.Close()

	ids := groupIDs{group: RootID, mdkv: first, attrkv: first + 1}
	pair, err := buildGroup(ctx, hs, c, wtid, PolicyFromScope(scope), ids, props)
	if err != nil {
		return false, err
	}
	if err := hs.release(pair.Read, pair.Write); err != nil {
		return false, storeFailure("close root group", PathSeparator, err)
	}
	return true, nil
}

// OpenRoot opens the root group of c for read and write.
func OpenRoot(ctx context.Context, c object.Container) (object.HandlePair, error) {
	hs := newHandleScope(ctx, c)
	defer hs.Close()

	pair, err := hs.openPair(RootID)
	if object.IsCode(err, object.ErrNotFound) {
		return object.UndefinedPair(), newError(ErrPathNotFound, "open root group", PathSeparator, err)
	}
	if err != nil {
		return object.UndefinedPair(), storeFailure("open root group", PathSeparator, err)
	}
	hs.keep(pair.Read, pair.Write)
	return pair, nil
}
