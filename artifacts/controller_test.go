package artifacts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.vocdoni.io/guardians/apiclient"
	"go.vocdoni.io/guardians/types"
)

// fakeSource answers retrievals with fn and counts the calls.
type fakeSource struct {
	calls atomic.Int32
	fn    func(ctx context.Context, electionID string) ([]types.Guardian, error)
}

func (s *fakeSource) ElectionGuardians(ctx context.Context, electionID string) ([]types.Guardian, error) {
	s.calls.Add(1)
	return s.fn(ctx, electionID)
}

func staticSource(guardians []types.Guardian, err error) *fakeSource {
	return &fakeSource{fn: func(context.Context, string) ([]types.Guardian, error) {
		return guardians, err
	}}
}

func testGuardians() []types.Guardian {
	return []types.Guardian{
		{
			ID:                "g1",
			SequenceOrder:     1,
			UserEmail:         "g1@example.com",
			GuardianPublicKey: types.String("ABCDEF"),
		},
		{
			ID:                    "g2",
			SequenceOrder:         2,
			UserEmail:             "g2@example.com",
			PartialDecryptedTally: types.String(""),
		},
	}
}

func waitState(t *testing.T, ctrl *Controller) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := ctrl.Wait(ctx)
	qt.Assert(t, err, qt.IsNil)
	return st
}

func TestControllerIdle(t *testing.T) {
	c := qt.New(t)
	src := staticSource(nil, nil)
	ctrl := NewController(src)
	defer ctrl.Close()

	c.Assert(ctrl.State().Status, qt.Equals, StatusIdle)
	ctrl.SetElection("")
	st := waitState(t, ctrl)
	c.Assert(st.Status, qt.Equals, StatusIdle)
	c.Assert(st.Err, qt.IsNil)
	c.Assert(src.calls.Load(), qt.Equals, int32(0))

	ctrl.Refresh()
	c.Assert(src.calls.Load(), qt.Equals, int32(0))
}

func TestControllerReady(t *testing.T) {
	c := qt.New(t)
	src := staticSource(testGuardians(), nil)
	var mu sync.Mutex
	var seen []State
	ctrl := NewController(src, WithOnChange(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st)
	}))
	defer ctrl.Close()

	ctrl.SetElection("e1")
	st := waitState(t, ctrl)
	c.Assert(st.Status, qt.Equals, StatusReady)
	c.Assert(st.ElectionID, qt.Equals, "e1")
	c.Assert(st.Guardians, qt.DeepEquals, testGuardians())

	// same election, no new retrieval
	ctrl.SetElection("e1")
	c.Assert(waitState(t, ctrl).Status, qt.Equals, StatusReady)
	c.Assert(src.calls.Load(), qt.Equals, int32(1))

	ctrl.Refresh()
	c.Assert(waitState(t, ctrl).Status, qt.Equals, StatusReady)
	c.Assert(src.calls.Load(), qt.Equals, int32(2))

	// the last delivery is the final state, earlier ones never go back
	want := ctrl.State()
	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		var last State
		if n > 0 {
			last = seen[n-1]
		}
		mu.Unlock()
		if n > 0 && last.Generation == want.Generation && last.Status == StatusReady {
			break
		}
		if time.Now().After(deadline) {
			c.Fatal("final state was not delivered")
		}
		time.Sleep(time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		prev, cur := seen[i-1], seen[i]
		c.Assert(cur.Generation >= prev.Generation, qt.IsTrue, qt.Commentf("delivery %d", i))
		if cur.Generation == prev.Generation {
			c.Assert(prev.Status, qt.Equals, StatusLoading)
			c.Assert(cur.Status, qt.Equals, StatusReady)
		}
	}
}

func TestControllerOnChangeDropsOlderStates(t *testing.T) {
	c := qt.New(t)
	var seen []uint64
	ctrl := NewController(staticSource(nil, nil), WithOnChange(func(st State) {
		seen = append(seen, st.Generation)
	}))
	ctrl.notify(State{Status: StatusLoading, Generation: 3}, 5)
	// a ready state of the previous generation arriving late
	ctrl.notify(State{Status: StatusReady, Generation: 2}, 4)
	ctrl.notify(State{Status: StatusReady, Generation: 3}, 6)
	c.Assert(seen, qt.DeepEquals, []uint64{3, 3})
}

func TestControllerOnChangeReentrant(t *testing.T) {
	c := qt.New(t)
	var seen []Status
	var ctrl *Controller
	src := &fakeSource{fn: func(ctx context.Context, _ string) ([]types.Guardian, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	ctrl = NewController(src, WithOnChange(func(st State) {
		seen = append(seen, st.Status)
		if st.Status == StatusLoading && st.ElectionID == "e1" {
			ctrl.SetElection("")
		}
	}))
	defer ctrl.Close()
	// the nested transition is delivered after the one that caused it
	ctrl.SetElection("e1")
	c.Assert(seen, qt.DeepEquals, []Status{StatusLoading, StatusIdle})
	c.Assert(waitState(t, ctrl).Status, qt.Equals, StatusIdle)
}

func TestControllerSnapshotIsCopy(t *testing.T) {
	c := qt.New(t)
	ctrl := NewController(staticSource(testGuardians(), nil))
	defer ctrl.Close()
	ctrl.SetElection("e1")
	st := waitState(t, ctrl)
	st.Guardians[0].UserEmail = "changed"
	c.Assert(ctrl.State().Guardians[0].UserEmail, qt.Equals, "g1@example.com")
}

func TestControllerErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"server message", &apiclient.ServerError{Status: 200, Message: "DB down"}, "DB down"},
		{"server without message", &apiclient.ServerError{Status: 200}, "unknown error"},
		{"http status", &apiclient.ServerError{Status: 503, Message: "failed to fetch guardians (HTTP 503)"},
			"failed to fetch guardians (HTTP 503)"},
		{"network", &apiclient.TransportError{Err: errors.New("connection refused")}, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			src := staticSource(testGuardians(), tt.err)
			ctrl := NewController(src)
			defer ctrl.Close()

			ctrl.SetElection("e1")
			st := waitState(t, ctrl)
			c.Assert(st.Status, qt.Equals, StatusError)
			c.Assert(st.Message, qt.Equals, tt.wantMsg)
			c.Assert(st.Err, qt.Equals, tt.err)
			c.Assert(st.Guardians, qt.IsNil)

			// no automatic retry
			time.Sleep(20 * time.Millisecond)
			c.Assert(src.calls.Load(), qt.Equals, int32(1))
		})
	}
}

func TestControllerTimeout(t *testing.T) {
	c := qt.New(t)
	src := &fakeSource{fn: func(ctx context.Context, _ string) ([]types.Guardian, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	ctrl := NewController(src, WithFetchTimeout(20*time.Millisecond))
	defer ctrl.Close()

	ctrl.SetElection("e1")
	st := waitState(t, ctrl)
	c.Assert(st.Status, qt.Equals, StatusError)
	c.Assert(st.Message, qt.Equals, "timeout fetching guardian data")
}

func TestControllerDiscardsStaleResponse(t *testing.T) {
	c := qt.New(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var canceled atomic.Bool
	releaseE2 := make(chan struct{})
	src := &fakeSource{fn: func(ctx context.Context, electionID string) ([]types.Guardian, error) {
		if electionID == "e1" {
			close(started)
			<-release
			canceled.Store(ctx.Err() != nil)
			return []types.Guardian{{ID: "old", SequenceOrder: 1}}, nil
		}
		<-releaseE2
		return testGuardians(), nil
	}}
	ctrl := NewController(src)
	defer ctrl.Close()
	stale := testutil.ToFloat64(staleResponses)

	ctrl.SetElection("e1")
	<-started
	ctrl.SetElection("e2")
	// the e1 retrieval is pending, the switch shows nothing but loading
	st := ctrl.State()
	c.Assert(st.Status, qt.Equals, StatusLoading)
	c.Assert(st.ElectionID, qt.Equals, "e2")
	c.Assert(st.Guardians, qt.IsNil)

	close(releaseE2)
	st = waitState(t, ctrl)
	c.Assert(st.ElectionID, qt.Equals, "e2")
	c.Assert(st.Guardians, qt.DeepEquals, testGuardians())

	close(release)
	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(staleResponses) == stale {
		if time.Now().After(deadline) {
			c.Fatal("stale response was not discarded")
		}
		time.Sleep(time.Millisecond)
	}
	c.Assert(canceled.Load(), qt.IsTrue)
	st = ctrl.State()
	c.Assert(st.ElectionID, qt.Equals, "e2")
	c.Assert(st.Status, qt.Equals, StatusReady)
	c.Assert(st.Guardians, qt.DeepEquals, testGuardians())
}

func TestControllerLoadingClearsGuardians(t *testing.T) {
	c := qt.New(t)
	block := make(chan struct{})
	defer close(block)
	var first atomic.Bool
	first.Store(true)
	src := &fakeSource{fn: func(ctx context.Context, _ string) ([]types.Guardian, error) {
		if first.Swap(false) {
			return testGuardians(), nil
		}
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil, ctx.Err()
	}}
	ctrl := NewController(src)
	defer ctrl.Close()

	ctrl.SetElection("e1")
	c.Assert(waitState(t, ctrl).Guardians, qt.HasLen, 2)

	ctrl.Refresh()
	st := ctrl.State()
	c.Assert(st.Status, qt.Equals, StatusLoading)
	c.Assert(st.Guardians, qt.IsNil)

	// an empty election stops the retrieval
	ctrl.SetElection("")
	st = waitState(t, ctrl)
	c.Assert(st.Status, qt.Equals, StatusIdle)
	c.Assert(st.Guardians, qt.IsNil)
}

func TestControllerCloseDiscardsCanceledRetrieval(t *testing.T) {
	c := qt.New(t)
	started := make(chan struct{})
	src := &fakeSource{fn: func(ctx context.Context, _ string) ([]types.Guardian, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	ctrl := NewController(src)
	stale := testutil.ToFloat64(staleResponses)

	ctrl.SetElection("e1")
	<-started
	ctrl.Close()

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(staleResponses) == stale {
		if time.Now().After(deadline) {
			c.Fatal("canceled retrieval was not discarded")
		}
		time.Sleep(time.Millisecond)
	}
	st := waitState(t, ctrl)
	c.Assert(st.Status, qt.Equals, StatusIdle)
	c.Assert(st.ElectionID, qt.Equals, "e1")
	c.Assert(st.Err, qt.IsNil)
	c.Assert(st.Message, qt.Equals, "")
}

func TestControllerWaitContext(t *testing.T) {
	c := qt.New(t)
	src := &fakeSource{fn: func(ctx context.Context, _ string) ([]types.Guardian, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	ctrl := NewController(src)
	ctrl.SetElection("e1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st, err := ctrl.Wait(ctx)
	c.Assert(err, qt.Equals, context.DeadlineExceeded)
	c.Assert(st.Status, qt.Equals, StatusLoading)
	ctrl.Close()
}
