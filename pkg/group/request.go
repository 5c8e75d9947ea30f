package group

import (
	"github.com/marmos91/dittoiod/pkg/store/object"
)

// CreateRequest asks for a new group at Name, resolved relative to the
// location (LocID, LocHandles).
//
// The caller pre-allocates all three object IDs; AllocateGroupIDs can be
// used when the caller has no allocator of its own.
type CreateRequest struct {
	Container  object.Container
	LocID      object.ObjectID
	LocHandles object.HandlePair

	GroupID  object.ObjectID
	MDKVID   object.ObjectID
	AttrKVID object.ObjectID

	Name string

	// TransNum is the write transaction all mutations are made under
	TransNum object.TransID

	// RcxtNum is the read context used for path resolution
	RcxtNum object.TransID

	ChecksumScope ChecksumScope

	// CreateProps is stored verbatim; empty means the handler's default
	CreateProps PropertyList
}

func (r *CreateRequest) validate() error {
	if r.Container == nil {
		return newError(ErrInvalidArgument, "create group", r.Name, nil)
	}
	if !r.GroupID.IsDefined() || !r.MDKVID.IsDefined() || !r.AttrKVID.IsDefined() {
		return newError(ErrInvalidArgument, "create group", r.Name,
			object.NewError(object.ErrInvalidArgument, "group, metadata and attribute ids must be defined"))
	}
	if r.GroupID == r.MDKVID || r.GroupID == r.AttrKVID || r.MDKVID == r.AttrKVID {
		return newError(ErrInvalidArgument, "create group", r.Name,
			object.NewError(object.ErrInvalidArgument, "group, metadata and attribute ids must be distinct"))
	}
	return nil
}

// OpenRequest asks to open the existing group at Name.
type OpenRequest struct {
	Container  object.Container
	LocID      object.ObjectID
	LocHandles object.HandlePair

	Name          string
	RcxtNum       object.TransID
	ChecksumScope ChecksumScope
}

// CloseRequest asks to release a group's handle pair.
type CloseRequest struct {
	Container object.Container
	Handles   object.HandlePair
}

// LinkRequest asks for an additional hard link called Name to the existing
// group TargetID.
type LinkRequest struct {
	Container  object.Container
	LocID      object.ObjectID
	LocHandles object.HandlePair

	Name     string
	TargetID object.ObjectID

	TransNum      object.TransID
	RcxtNum       object.TransID
	ChecksumScope ChecksumScope
}
