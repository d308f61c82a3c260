package artifacts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.vocdoni.io/guardians/apiclient"
	"go.vocdoni.io/guardians/log"
	"go.vocdoni.io/guardians/types"
)

// DefaultFetchTimeout bounds a single guardian retrieval.
const DefaultFetchTimeout = 15 * time.Second

// Source retrieves the guardian records of an election. It is implemented by
// *apiclient.HTTPclient.
type Source interface {
	ElectionGuardians(ctx context.Context, electionID string) ([]types.Guardian, error)
}

var _ Source = (*apiclient.HTTPclient)(nil)

// Status is the lifecycle state of the fetch controller.
type Status int

const (
	// StatusIdle means no election is selected, nothing was requested.
	StatusIdle Status = iota
	// StatusLoading means a retrieval for the current election is in flight.
	StatusLoading
	// StatusReady means the guardian set of the current election is available.
	StatusReady
	// StatusError means the last retrieval failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is an immutable snapshot of the controller.
type State struct {
	ElectionID string
	Status     Status
	// Guardians is only set when Status is StatusReady. The slice is a copy
	// and may be used freely.
	Guardians []types.Guardian
	// Message is the user displayable error when Status is StatusError.
	Message string
	// Err is the underlying error when Status is StatusError.
	Err error
	// Generation increases on every retrieval started or abandoned by the
	// controller.
	Generation uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithFetchTimeout sets the timeout applied to every retrieval.
func WithFetchTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.timeout = d
	}
}

// WithOnChange registers a callback invoked, outside the controller lock,
// after state transitions. Deliveries are serialized and never go back in
// time: a transition that loses the race against a newer one is not
// delivered. The callback may call into the controller.
func WithOnChange(fn func(State)) ControllerOption {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller retrieves the guardian set of the selected election and tracks
// the loading, ready and error states. Selecting another election cancels the
// in-flight retrieval; a late response belonging to a superseded retrieval is
// discarded. Failed retrievals are not retried automatically.
type Controller struct {
	src      Source
	timeout  time.Duration
	onChange func(State)

	mu         sync.Mutex
	state      State
	generation uint64
	// seq numbers every transition, including those within a generation
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}

	notifyMu   sync.Mutex
	notified   uint64
	pending    []State
	delivering bool
}

// NewController returns an idle controller reading from src.
func NewController(src Source, opts ...ControllerOption) *Controller {
	c := &Controller{
		src:     src,
		timeout: DefaultFetchTimeout,
		done:    closedChan(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetElection selects an election and starts retrieving its guardians. The
// previous guardian set is cleared immediately. Selecting the same election
// again does nothing, use Refresh to fetch it again. An empty id stops any
// retrieval and leaves the controller idle.
func (c *Controller) SetElection(electionID string) {
	c.mu.Lock()
	if electionID == c.state.ElectionID && c.state.Status != StatusIdle {
		c.mu.Unlock()
		return
	}
	st := c.startLocked(electionID)
	seq := c.seq
	c.mu.Unlock()
	c.notify(st, seq)
}

// Refresh retrieves the guardians of the current election again. It is a
// no-op when no election is selected.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.state.ElectionID == "" {
		c.mu.Unlock()
		return
	}
	st := c.startLocked(c.state.ElectionID)
	seq := c.seq
	c.mu.Unlock()
	c.notify(st, seq)
}

// startLocked supersedes any in-flight retrieval and starts a new one.
func (c *Controller) startLocked(electionID string) State {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state.Status == StatusLoading {
		// release the waiters of the superseded retrieval, they will
		// look at the new generation on wake up
		close(c.done)
	}
	c.generation++
	c.seq++
	c.state = State{ElectionID: electionID, Generation: c.generation}
	if electionID == "" {
		c.state.Status = StatusIdle
		c.done = closedChan()
		return c.state
	}
	c.state.Status = StatusLoading
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.fetch(ctx, c.generation, electionID, c.done)
	return c.state
}

func (c *Controller) fetch(ctx context.Context, gen uint64, electionID string, done chan struct{}) {
	start := time.Now()
	guardians, err := c.src.ElectionGuardians(ctx, electionID)
	observeFetch(time.Since(start), err)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		staleResponses.Inc()
		log.Debugw("discarding stale guardians response",
			"electionID", electionID, "generation", gen)
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.state.Status = StatusError
		c.state.Err = err
		c.state.Message = errorMessage(err)
		log.Warnw("cannot fetch guardians", "electionID", electionID, "error", err)
	} else {
		c.state.Status = StatusReady
		c.state.Guardians = guardians
		log.Debugw("guardians fetched", "electionID", electionID, "count", len(guardians))
	}
	c.seq++
	seq := c.seq
	st := c.snapshotLocked()
	close(done)
	c.mu.Unlock()
	c.notify(st, seq)
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until the current retrieval settles or ctx is done. If another
// election is selected while waiting, Wait follows the new retrieval.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		done := c.done
		gen := c.generation
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return c.State(), ctx.Err()
		case <-done:
		}
		c.mu.Lock()
		if gen == c.generation && c.state.Status != StatusLoading {
			st := c.snapshotLocked()
			c.mu.Unlock()
			return st, nil
		}
		c.mu.Unlock()
	}
}

// Close cancels any in-flight retrieval. Its result is discarded and a
// controller that was loading goes back to idle, keeping the election id.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.state.Status != StatusLoading {
		c.mu.Unlock()
		return
	}
	c.generation++
	close(c.done)
	c.done = closedChan()
	c.seq++
	seq := c.seq
	c.state = State{ElectionID: c.state.ElectionID, Status: StatusIdle, Generation: c.generation}
	st := c.state
	c.mu.Unlock()
	c.notify(st, seq)
}

func (c *Controller) snapshotLocked() State {
	st := c.state
	if st.Guardians != nil {
		st.Guardians = append([]types.Guardian(nil), st.Guardians...)
	}
	return st
}

// notify hands st to the onChange callback. States older than one already
// queued are dropped. Whoever finds no delivery running drains the queue.
func (c *Controller) notify(st State, seq uint64) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	if seq <= c.notified {
		c.notifyMu.Unlock()
		return
	}
	c.notified = seq
	c.pending = append(c.pending, st)
	if c.delivering {
		c.notifyMu.Unlock()
		return
	}
	c.delivering = true
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.notifyMu.Unlock()
		c.onChange(next)
		c.notifyMu.Lock()
	}
	c.delivering = false
	c.notifyMu.Unlock()
}

// errorMessage turns a retrieval error into the text shown to the user.
func errorMessage(err error) string {
	var serr *apiclient.ServerError
	if errors.As(err, &serr) {
		if serr.Message != "" {
			return serr.Message
		}
		return types.UnknownErrorText
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout fetching guardian data"
	}
	return err.Error()
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
