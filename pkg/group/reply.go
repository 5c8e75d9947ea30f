package group

import (
	"sync"

	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Status is the outcome code carried by every reply.
type Status int

const (
	StatusOK Status = iota
	StatusPathNotFound
	StatusDuplicateName
	StatusStoreError
	StatusIntegrityError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPathNotFound:
		return "path_not_found"
	case StatusDuplicateName:
		return "duplicate_name"
	case StatusStoreError:
		return "store_error"
	case StatusIntegrityError:
		return "integrity_error"
	default:
		return "unknown"
	}
}

// StatusOf maps an error to the reply status. Malformed requests are
// reported as store errors.
func StatusOf(err error) Status {
	switch CodeOf(err) {
	case 0:
		return StatusOK
	case ErrPathNotFound:
		return StatusPathNotFound
	case ErrDuplicateName:
		return StatusDuplicateName
	case ErrIntegrity:
		return StatusIntegrityError
	default:
		return StatusStoreError
	}
}

// CreateReply answers a CreateRequest.
type CreateReply struct {
	// Handles is the new group's handle pair, owned by the caller
	Handles object.HandlePair
	Status  Status
}

// OpenReply answers an OpenRequest.
type OpenReply struct {
	ID          object.ObjectID
	Handles     object.HandlePair
	MDKVID      object.ObjectID
	AttrKVID    object.ObjectID
	CreateProps PropertyList

	// LinkCount is 0 on failure
	LinkCount uint64
	Status    Status
}

// CloseReply answers a CloseRequest.
type CloseReply struct {
	Status Status
}

// LinkReply answers a LinkRequest.
type LinkReply struct {
	// LinkCount is the target's link count after the new link
	LinkCount uint64
	Status    Status
}

func assembleCreateReply(pair object.HandlePair, err error) CreateReply {
	if err != nil {
		return CreateReply{Handles: object.UndefinedPair(), Status: StatusOf(err)}
	}
	return CreateReply{Handles: pair, Status: StatusOK}
}

func assembleOpenReply(res *openResult, err error, defaults PropertyList) OpenReply {
	if err != nil {
		return OpenReply{
			ID:          object.UndefinedID,
			Handles:     object.UndefinedPair(),
			MDKVID:      object.UndefinedID,
			AttrKVID:    object.UndefinedID,
			CreateProps: defaults.clone(),
			Status:      StatusOf(err),
		}
	}
	return OpenReply{
		ID:          res.id,
		Handles:     res.handles,
		MDKVID:      res.pad.MDKV(),
		AttrKVID:    res.pad.AttrKV(),
		CreateProps: res.props,
		LinkCount:   res.linkCount,
		Status:      StatusOK,
	}
}

func assembleCloseReply(err error) CloseReply {
	return CloseReply{Status: StatusOf(err)}
}

func assembleLinkReply(count uint64, err error) LinkReply {
	if err != nil {
		return LinkReply{Status: StatusOf(err)}
	}
	return LinkReply{LinkCount: count, Status: StatusOK}
}

// Sink receives the reply of one request. Handlers call Reply exactly once
// per request; it is the only completion signal a caller gets.
type Sink[R any] interface {
	Reply(R)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[R any] func(R)

func (f SinkFunc[R]) Reply(r R) { f(r) }

// ChanSink delivers the reply on a buffered channel of size one.
type ChanSink[R any] chan R

// NewChanSink returns a ChanSink ready to receive one reply.
func NewChanSink[R any]() ChanSink[R] {
	return make(ChanSink[R], 1)
}

func (s ChanSink[R]) Reply(r R) { s <- r }

// Recorder is a Sink that keeps every reply it receives.
type Recorder[R any] struct {
	mu      sync.Mutex
	replies []R
}

func (r *Recorder[R]) Reply(reply R) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
}

// Replies returns a copy of the recorded replies.
func (r *Recorder[R]) Replies() []R {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]R(nil), r.replies...)
}
