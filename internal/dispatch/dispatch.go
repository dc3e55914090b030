// Package dispatch sends filter requests to the processing service in the
// background and decides whether each response may still be applied.
//
// Every dispatch is stamped with a monotonically increasing sequence number,
// the generation of the session it came from and the snapshot it was built
// on. A response is applied only while all three still match: it is the most
// recently dispatched request, no new image was loaded or restored since,
// and the current snapshot is still its base.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cristianoliveira/pixedit/internal/colors"
	"github.com/cristianoliveira/pixedit/internal/filter"
	"github.com/cristianoliveira/pixedit/internal/snapshot"
)

// ErrStaleResponse reports a response discarded because a newer dispatch,
// load or history move superseded its request.
var ErrStaleResponse = errors.New("dispatch: stale response discarded")

// Processor performs one remote filter application.
type Processor interface {
	Process(ctx context.Context, req filter.Request) (filter.ProcessedImage, error)
}

// Stamp identifies a dispatch for staleness checks.
type Stamp struct {
	Seq        uint64
	Generation uint64
	BaseID     string
}

// CommitFunc applies a converted result. Implementations call Check under the
// lock that guards the current snapshot and record the snapshot only if it
// passes.
type CommitFunc func(stamp Stamp, snap *snapshot.Snapshot) error

// Dispatcher issues background filter requests.
type Dispatcher struct {
	proc Processor

	mu         sync.Mutex
	seq        uint64
	generation uint64
	inFlight   int
}

// New creates a dispatcher backed by proc.
func New(proc Processor) *Dispatcher {
	return &Dispatcher{proc: proc}
}

// Invalidate makes every outstanding dispatch stale. Called when the session
// loads or restores an image.
func (d *Dispatcher) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
}

// Check returns ErrStaleResponse unless stamp is still current for currentID.
func (d *Dispatcher) Check(stamp Stamp, currentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case stamp.Seq != d.seq:
		return fmt.Errorf("%w: superseded by dispatch %d", ErrStaleResponse, d.seq)
	case stamp.Generation != d.generation:
		return fmt.Errorf("%w: image replaced", ErrStaleResponse)
	case stamp.BaseID != currentID:
		return fmt.Errorf("%w: history moved", ErrStaleResponse)
	}
	return nil
}

// InFlight returns the number of requests awaiting a response.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Dispatch validates req, stamps it against baseID and runs it in the
// background. Validation errors are returned synchronously and nothing is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, req filter.Request, baseID string, commit CommitFunc) (*Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.seq++
	d.inFlight++
	stamp := Stamp{Seq: d.seq, Generation: d.generation, BaseID: baseID}
	d.mu.Unlock()

	t := &Ticket{Seq: stamp.Seq, Filter: req.Filter, done: make(chan struct{})}
	colors.StructuredDebug("dispatch", "send", "started", nil, baseID, map[string]any{
		"seq":    stamp.Seq,
		"filter": string(req.Filter),
	})

	go func() {
		defer close(t.done)
		defer func() {
			d.mu.Lock()
			d.inFlight--
			d.mu.Unlock()
		}()
		t.snap, t.err = d.run(ctx, req, stamp, commit)
	}()
	return t, nil
}

func (d *Dispatcher) run(ctx context.Context, req filter.Request, stamp Stamp, commit CommitFunc) (*snapshot.Snapshot, error) {
	start := time.Now()
	fields := map[string]any{"seq": stamp.Seq, "filter": string(req.Filter)}

	processed, err := d.proc.Process(ctx, req)
	fields["elapsed_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		colors.StructuredWarn("dispatch", "complete", "failed", err, stamp.BaseID, fields)
		return nil, err
	}

	snap, err := processed.ToSnapshot(req.Filter)
	if err != nil {
		colors.StructuredWarn("dispatch", "complete", "unusable", err, stamp.BaseID, fields)
		return nil, err
	}

	if err := commit(stamp, snap); err != nil {
		if errors.Is(err, ErrStaleResponse) {
			colors.StructuredDebug("dispatch", "complete", "stale", err, stamp.BaseID, fields)
		} else {
			colors.StructuredWarn("dispatch", "complete", "commit_failed", err, stamp.BaseID, fields)
		}
		return nil, err
	}
	colors.StructuredInfo("dispatch", "complete", "applied", nil, snap.ID(), fields)
	return snap, nil
}

// Ticket tracks one background dispatch.
type Ticket struct {
	Seq    uint64
	Filter filter.ID

	done chan struct{}
	snap *snapshot.Snapshot
	err  error
}

// Done is closed once the outcome is known.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the dispatch completes or ctx ends. It returns the
// recorded snapshot, or the failure. Cancelling ctx only stops waiting.
func (t *Ticket) Wait(ctx context.Context) (*snapshot.Snapshot, error) {
	select {
	case <-t.done:
		return t.snap, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
