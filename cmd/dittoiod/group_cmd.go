package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittoiod/pkg/config"
	"github.com/marmos91/dittoiod/pkg/engine"
	"github.com/marmos91/dittoiod/pkg/group"
	"github.com/marmos91/dittoiod/pkg/store/object"
	"github.com/spf13/cobra"
)

// latest is the read context that observes every committed write.
const latest = object.TransID(math.MaxUint64)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Create, inspect and link groups",
	Long: `Group paths are resolved from the container's root group and use "/"
as separator; a leading "/" is optional.

Every create or link runs under its own write transaction, numbered upward
from --trans. A failed request has its transaction aborted so it leaves
nothing behind.`,
}

var groupFlags struct {
	parents bool
	props   string
	trans   uint64
	rcxt    uint64
}

var groupMkdirCmd = &cobra.Command{
	Use:   "mkdir PATH...",
	Short: "Create groups",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *config.Runtime) error {
			return runMkdir(ctx, rt, args, mkdirOptions{
				Parents: groupFlags.parents,
				Props:   group.PropertyList(groupFlags.props),
				Trans:   newTransClock(groupFlags.trans),
			}, cmd.OutOrStdout())
		})
	},
}

var groupStatCmd = &cobra.Command{
	Use:   "stat PATH...",
	Short: "Open groups and print what open returns",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *config.Runtime) error {
			return runStat(ctx, rt, args, readContext(groupFlags.rcxt), cmd.OutOrStdout())
		})
	},
}

var groupLinkCmd = &cobra.Command{
	Use:   "link TARGET NEWPATH",
	Short: "Add a hard link to an existing group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *config.Runtime) error {
			return runLink(ctx, rt, args[0], args[1], newTransClock(groupFlags.trans), cmd.OutOrStdout())
		})
	},
}

func init() {
	groupCmd.PersistentFlags().Uint64Var(&groupFlags.trans, "trans", 0, "first write transaction number (default: derived from the clock)")
	groupCmd.PersistentFlags().Uint64Var(&groupFlags.rcxt, "rcxt", 0, "read context for stat (default: latest)")
	groupMkdirCmd.Flags().BoolVarP(&groupFlags.parents, "parents", "p", false, "create missing parents, no error if existing")
	groupMkdirCmd.Flags().StringVar(&groupFlags.props, "props", "", "creation property list (default: groups.default_create_props)")

	groupCmd.AddCommand(groupMkdirCmd, groupStatCmd, groupLinkCmd)
}

// transClock hands out increasing write transaction numbers. A request's
// read context is the number just below its own, so it observes every
// request that finished before it was numbered.
type transClock struct {
	next atomic.Uint64
}

// newTransClock starts at base, or at the wall clock in nanoseconds when
// base is zero so separate invocations against a persistent container keep
// increasing.
func newTransClock(base uint64) *transClock {
	if base == 0 {
		base = uint64(time.Now().UnixNano())
	}
	c := &transClock{}
	c.next.Store(base)
	return c
}

func (c *transClock) Next() object.TransID {
	return object.TransID(c.next.Add(1) - 1)
}

func readContext(rcxt uint64) object.TransID {
	if rcxt == 0 {
		return latest
	}
	return object.TransID(rcxt)
}

type mkdirOptions struct {
	Parents bool
	Props   group.PropertyList
	Trans   *transClock
}

// report collects one output line per path and prints them sorted.
type report struct {
	mu    sync.Mutex
	lines map[string]string
}

func newReport() *report {
	return &report{lines: make(map[string]string)}
}

func (r *report) set(path, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[path] = line
}

func (r *report) print(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.lines))
	for p := range r.lines {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(w, "%s\t%s\n", p, r.lines[p])
	}
}

// runMkdir creates every path as an independent engine task.
func runMkdir(ctx context.Context, rt *config.Runtime, paths []string, opts mkdirOptions, out io.Writer) error {
	rep := newReport()
	b := rt.Engine.NewBatch(ctx)
	for _, p := range paths {
		p := p
		b.Go("create:"+p, func(ctx context.Context) error {
			targets := []string{p}
			if opts.Parents {
				targets = prefixes(p)
			}
			for _, t := range targets {
				err := createOne(ctx, rt, t, opts)
				if opts.Parents && group.IsCode(err, group.ErrDuplicateName) {
					continue
				}
				if err != nil {
					rep.set(p, group.StatusOf(err).String())
					return err
				}
			}
			rep.set(p, group.StatusOK.String())
			return nil
		})
	}
	return finish(b.Wait, rep, out, "create")
}

// createOne creates a single group and releases the handles the reply
// carries. A failed create has its transaction aborted.
func createOne(ctx context.Context, rt *config.Runtime, path string, opts mkdirOptions) error {
	c := rt.Container.Container
	gid, mdkv, attrkv, err := group.AllocateGroupIDs(ctx, c)
	if err != nil {
		return err
	}

	tid := opts.Trans.Next()
	sink := group.NewChanSink[group.CreateReply]()
	err = rt.Handler.CreateGroup(ctx, &group.CreateRequest{
		Container:     c,
		LocID:         group.RootID,
		LocHandles:    rt.Container.Root,
		GroupID:       gid,
		MDKVID:        mdkv,
		AttrKVID:      attrkv,
		Name:          path,
		TransNum:      tid,
		RcxtNum:       tid - 1,
		ChecksumScope: rt.ChecksumScope,
		CreateProps:   opts.Props,
	}, sink)
	reply := <-sink
	if err != nil {
		if abortErr := c.Abort(context.WithoutCancel(ctx), tid); abortErr != nil {
			return fmt.Errorf("%w (abort of transaction %d failed: %v)", err, tid, abortErr)
		}
		return err
	}
	return closeGroup(ctx, rt, reply.Handles)
}

func closeGroup(ctx context.Context, rt *config.Runtime, handles object.HandlePair) error {
	return rt.Handler.CloseGroup(ctx, &group.CloseRequest{
		Container: rt.Container.Container,
		Handles:   handles,
	}, group.SinkFunc[group.CloseReply](func(group.CloseReply) {}))
}

// runStat opens every path as an engine task and prints the open reply.
func runStat(ctx context.Context, rt *config.Runtime, paths []string, rcxt object.TransID, out io.Writer) error {
	rep := newReport()
	b := rt.Engine.NewBatch(ctx)
	for _, p := range paths {
		p := p
		b.Go("open:"+p, func(ctx context.Context) error {
			reply, err := openOne(ctx, rt, p, rcxt)
			if err != nil {
				rep.set(p, reply.Status.String())
				return err
			}
			rep.set(p, fmt.Sprintf("id=%s mdkv=%s attrkv=%s links=%d props=%q",
				reply.ID, reply.MDKVID, reply.AttrKVID, reply.LinkCount, string(reply.CreateProps)))
			return closeGroup(ctx, rt, reply.Handles)
		})
	}
	return finish(b.Wait, rep, out, "open")
}

func openOne(ctx context.Context, rt *config.Runtime, path string, rcxt object.TransID) (group.OpenReply, error) {
	sink := group.NewChanSink[group.OpenReply]()
	err := rt.Handler.OpenGroup(ctx, &group.OpenRequest{
		Container:     rt.Container.Container,
		LocID:         group.RootID,
		LocHandles:    rt.Container.Root,
		Name:          path,
		RcxtNum:       rcxt,
		ChecksumScope: rt.ChecksumScope,
	}, sink)
	return <-sink, err
}

// runLink resolves target and adds newPath as another hard link to it.
func runLink(ctx context.Context, rt *config.Runtime, target, newPath string, clock *transClock, out io.Writer) error {
	tid := clock.Next()

	opened, err := openOne(ctx, rt, target, tid-1)
	if err != nil {
		return fmt.Errorf("%s: %s", target, opened.Status)
	}
	if err := closeGroup(ctx, rt, opened.Handles); err != nil {
		return err
	}

	c := rt.Container.Container
	sink := group.NewChanSink[group.LinkReply]()
	err = rt.Handler.LinkGroup(ctx, &group.LinkRequest{
		Container:     c,
		LocID:         group.RootID,
		LocHandles:    rt.Container.Root,
		Name:          newPath,
		TargetID:      opened.ID,
		TransNum:      tid,
		RcxtNum:       tid - 1,
		ChecksumScope: rt.ChecksumScope,
	}, sink)
	reply := <-sink
	if err != nil {
		_ = c.Abort(context.WithoutCancel(ctx), tid)
		return fmt.Errorf("%s: %s", newPath, reply.Status)
	}
	fmt.Fprintf(out, "%s\t-> %s (links=%d)\n", newPath, target, reply.LinkCount)
	return nil
}

// finish waits for a batch, prints its report and summarizes failures.
func finish(wait func() (engine.Result, error), rep *report, out io.Writer, op string) error {
	res, err := wait()
	rep.print(out)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%d of %d %s requests failed", len(res.Failed), res.Completed, op)
	}
	return nil
}

// prefixes returns "a", "a/b", "a/b/c" for "a/b/c".
func prefixes(path string) []string {
	var out []string
	var cur []string
	for _, part := range strings.Split(path, group.PathSeparator) {
		if part == "" {
			continue
		}
		cur = append(cur, part)
		out = append(out, strings.Join(cur, group.PathSeparator))
	}
	return out
}
