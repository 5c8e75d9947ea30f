package group

import (
	"context"
	"time"

	"github.com/marmos91/dittoiod/internal/logger"
	"github.com/marmos91/dittoiod/pkg/metrics"
	"github.com/marmos91/dittoiod/pkg/store/object"
)

// Handler serves group requests against any number of containers.
//
// Handler holds no per-request state and is safe for concurrent use. Each
// request method delivers exactly one reply to its sink, success or
// failure, and also returns the internal error so the dispatcher can log
// or count it. The returned error never replaces the reply.
type Handler struct {
	defaults PropertyList
	metrics  metrics.GroupMetrics
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// DefaultCreateProps is stored when a create request carries no
	// properties, and returned by open when the stored value is
	// unavailable or the open fails. Empty means DefaultCreateProps.
	DefaultCreateProps PropertyList

	// Metrics is optional; nil disables metrics.
	Metrics metrics.GroupMetrics
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewNoopGroupMetrics()
	}
	return &Handler{
		defaults: cfg.DefaultCreateProps.Or(DefaultCreateProps).clone(),
		metrics:  m,
	}
}

// Defaults returns the handler's default creation property list.
func (h *Handler) Defaults() PropertyList {
	return h.defaults.clone()
}

func (h *Handler) begin(op string) time.Time {
	h.metrics.RecordRequestStart(op)
	return time.Now()
}

func (h *Handler) end(op string, start time.Time, err error) {
	status := StatusOf(err)
	h.metrics.RecordRequestEnd(op)
	h.metrics.RecordRequest(op, time.Since(start), status.String())

	switch status {
	case StatusOK:
		logger.Debug("%s: done in %v", op, time.Since(start))
	case StatusStoreError, StatusIntegrityError:
		logger.Error("%s: %v", op, err)
	default:
		logger.Warn("%s: %v", op, err)
	}
}

// CreateGroup creates the group described by req and replies with its
// handle pair, or with undefined handles on failure.
//
// Parameters:
//   - ctx: Context for cancellation
//   - req: Location, pre-allocated IDs, name and transaction context
//   - sink: Receives exactly one CreateReply
//
// Returns:
//   - error: The failure behind an unsuccessful reply, nil on success
func (h *Handler) CreateGroup(ctx context.Context, req *CreateRequest, sink Sink[CreateReply]) error {
	start := h.begin("create")

	var (
		pair object.HandlePair
		err  error
	)
	if req == nil {
		err = newError(ErrInvalidArgument, "create group", "", nil)
	} else {
		logger.Debug("create: name=%q loc=%s wtid=%d rtid=%d group=%s mdkv=%s attrkv=%s",
			req.Name, req.LocID, req.TransNum, req.RcxtNum, req.GroupID, req.MDKVID, req.AttrKVID)
		pair, err = createGroup(ctx, req, req.CreateProps.Or(h.defaults))
	}

	h.end("create", start, err)
	sink.Reply(assembleCreateReply(pair, err))
	return err
}

// OpenGroup opens the group at req.Name and replies with its identity,
// cross-references and metadata.
//
// A failed open replies with undefined IDs and handles and the default
// creation property list.
func (h *Handler) OpenGroup(ctx context.Context, req *OpenRequest, sink Sink[OpenReply]) error {
	start := h.begin("open")

	var (
		res *openResult
		err error
	)
	if req == nil {
		err = newError(ErrInvalidArgument, "open group", "", nil)
	} else {
		logger.Debug("open: name=%q loc=%s rtid=%d", req.Name, req.LocID, req.RcxtNum)
		res, err = openGroup(ctx, req, h.defaults)
	}

	h.end("open", start, err)
	sink.Reply(assembleOpenReply(res, err, h.defaults))
	return err
}

// CloseGroup releases both halves of req.Handles.
func (h *Handler) CloseGroup(ctx context.Context, req *CloseRequest, sink Sink[CloseReply]) error {
	start := h.begin("close")

	var err error
	if req == nil {
		err = newError(ErrInvalidArgument, "close group", "", nil)
	} else {
		logger.Debug("close: handles=%s", req.Handles)
		err = closeGroup(ctx, req)
	}

	h.end("close", start, err)
	sink.Reply(assembleCloseReply(err))
	return err
}

// LinkGroup adds a hard link to an existing group.
func (h *Handler) LinkGroup(ctx context.Context, req *LinkRequest, sink Sink[LinkReply]) error {
	start := h.begin("link")

	var (
		count uint64
		err   error
	)
	if req == nil {
		err = newError(ErrInvalidArgument, "link group", "", nil)
	} else {
		logger.Debug("link: name=%q loc=%s target=%s wtid=%d", req.Name, req.LocID, req.TargetID, req.TransNum)
		count, err = linkGroup(ctx, req)
	}

	h.end("link", start, err)
	sink.Reply(assembleLinkReply(count, err))
	return err
}

// Bootstrap creates the root group of c if it does not exist yet.
//
// Returns:
//   - bool: true if the root was created by this call
//   - error: Failure to check or create the root
func (h *Handler) Bootstrap(ctx context.Context, c object.Container, wtid object.TransID, scope ChecksumScope) (bool, error) {
	created, err := bootstrapRoot(ctx, c, wtid, scope, h.defaults)
	if err != nil {
		logger.Error("bootstrap %s: %v", c.Name(), err)
		return false, err
	}
	if created {
		logger.Info("bootstrap %s: created root group", c.Name())
	}
	return created, nil
}
