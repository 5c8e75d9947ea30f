package group

import (
	"context"
	"strings"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// PathSeparator separates path components.
const PathSeparator = "/"

// Location is the result of a traversal: the last existing container on
// the path and the trailing component that was not resolved.
type Location struct {
	ID      object.ObjectID
	Handles object.HandlePair

	// Last is the unresolved trailing path component
	Last string

	// aliased is set when Handles are the caller's start handles
	aliased bool
}

// Aliased reports whether the location's handles are the caller's start
// handles. Aliased handles must not be closed by the consumer.
func (l *Location) Aliased() bool {
	return l.aliased
}

// splitPath splits path on PathSeparator, dropping empty components so that
// "/a//b/" and "a/b" are equivalent.
func splitPath(path string) []string {
	parts := strings.Split(path, PathSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Traverse walks every component of path except the last, starting from
// the container start (id startID), and returns the parent of the final
// component.
//
// Every intermediate component must already exist. Intermediate
// containers are opened for read and write as the walk proceeds, and each
// one is closed as soon as its child is open, so only the returned parent
// remains open. When path has no intermediate components the returned
// handles alias start.
//
// Parameters:
//   - ctx: Context for cancellation
//   - c: Container the path lives in
//   - startID, start: Where the walk begins
//   - path: Slash separated path; the final component may not exist
//   - rtid: Read context for link lookups
//   - createIntermediate: Must be false; groups never create missing
//     intermediate components
//
// Returns:
//   - *Location: Parent container and the trailing component
//   - error: ErrPathNotFound if an intermediate component is missing,
//     ErrInvalidArgument for an empty path, ErrStore otherwise
func Traverse(ctx context.Context, c object.Container, startID object.ObjectID, start object.HandlePair,
	path string, rtid object.TransID, createIntermediate bool) (*Location, error) {
	if createIntermediate {
		return nil, newError(ErrInvalidArgument, "traverse", path, object.NewError(object.ErrNotSupported,
			"creating intermediate groups is not supported"))
	}
	components := splitPath(path)
	if len(components) == 0 {
		return nil, newError(ErrInvalidArgument, "traverse", path, nil)
	}

	loc := &Location{
		ID:      startID,
		Handles: start,
		Last:    components[len(components)-1],
		aliased: true,
	}

	for _, name := range components[:len(components)-1] {
		link, err := LookupLink(ctx, c, loc.Handles.Read, rtid, name)
		if err != nil {
			releaseLocation(ctx, c, loc)
			if IsCode(err, ErrPathNotFound) {
				return nil, newError(ErrPathNotFound, "traverse", path, err)
			}
			return nil, err
		}
		if link.Type != LinkHard {
			releaseLocation(ctx, c, loc)
			return nil, newError(ErrInvalidArgument, "traverse", path, object.NewError(object.ErrNotSupported,
				link.Type.String()+" link "+name+" cannot be traversed"))
		}

		scope := newHandleScope(ctx, c)
		next, err := scope.openPair(link.Target)
		if err != nil {
			_ = scope.Close()
			releaseLocation(ctx, c, loc)
			return nil, storeFailure("open intermediate group", name, err)
		}
		scope.keep(next.Read, next.Write)

		if err := releaseLocation(ctx, c, loc); err != nil {
			releaseLocation(ctx, c, &Location{Handles: next})
			return nil, storeFailure("close intermediate group", name, err)
		}
		loc.ID = link.Target
		loc.Handles = next
		loc.aliased = false
	}

	return loc, nil
}

// Release closes the location's handles unless they alias the start
// handles.
func (l *Location) Release(ctx context.Context, c object.Container) error {
	return releaseLocation(ctx, c, l)
}

func releaseLocation(ctx context.Context, c object.Container, l *Location) error {
	if l.aliased {
		return nil
	}
	scope := newHandleScope(ctx, c)
	scope.trackPair(l.Handles)
	err := scope.release(l.Handles.Read, l.Handles.Write)
	l.Handles = object.UndefinedPair()
	l.aliased = true
	return err
}

// OpenPath resolves path to an existing object and opens it for read.
//
// Unlike Traverse, the final component must exist. The parent opened
// during the walk is released before returning.
//
// Returns:
//   - object.ObjectID: ID of the final component
//   - object.Handle: Read handle on it, owned by the caller
//   - error: ErrPathNotFound if any component is missing
func OpenPath(ctx context.Context, c object.Container, startID object.ObjectID, start object.HandlePair,
	path string, rtid object.TransID) (object.ObjectID, object.Handle, error) {
	loc, err := Traverse(ctx, c, startID, start, path, rtid, false)
	if err != nil {
		return object.UndefinedID, object.UndefinedHandle, err
	}

	link, err := LookupLink(ctx, c, loc.Handles.Read, rtid, loc.Last)
	if err != nil {
		releaseLocation(ctx, c, loc)
		if IsCode(err, ErrPathNotFound) {
			return object.UndefinedID, object.UndefinedHandle, newError(ErrPathNotFound, "open path", path, err)
		}
		return object.UndefinedID, object.UndefinedHandle, err
	}

	rd, err := c.OpenRead(ctx, link.Target)
	if err != nil {
		releaseLocation(ctx, c, loc)
		return object.UndefinedID, object.UndefinedHandle, storeFailure("open target", path, err)
	}

	if err := releaseLocation(ctx, c, loc); err != nil {
		_ = c.CloseObject(context.WithoutCancel(ctx), rd)
		return object.UndefinedID, object.UndefinedHandle, storeFailure("close parent", path, err)
	}
	return link.Target, rd, nil
}
