package group

import (
	"context"
	"errors"
)

// closeGroup closes both halves of req.Handles. Both closes are attempted;
// the request succeeds only if both do.
func closeGroup(ctx context.Context, req *CloseRequest) error {
	if req.Container == nil {
		return newError(ErrInvalidArgument, "close group", "", nil)
	}
	errRd := req.Container.CloseObject(ctx, req.Handles.Read)
	errWr := req.Container.CloseObject(ctx, req.Handles.Write)
	if errRd != nil || errWr != nil {
		return newError(ErrStore, "close group", "", errors.Join(errRd, errWr))
	}
	return nil
}
