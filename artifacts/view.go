package artifacts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/guardians/export"
	"go.vocdoni.io/guardians/types"
)

var (
	// ErrNotReady is returned by the operations that need the guardian set
	// while it is not available.
	ErrNotReady = errors.New("guardian data not available")
	// ErrGuardianNotFound is returned when a guardian is not part of the
	// current guardian set.
	ErrGuardianNotFound = errors.New("guardian not found")
)

// View ties the fetch controller, the disclosure store and the exports of
// the selected election. Exports are labelled with the election of the
// controller state they read the guardians from. The disclosure store is
// reset whenever that election changes, also when the controller is
// switched directly.
type View struct {
	ctrl       *Controller
	disclosure *Disclosure
	sink       export.Sink
	opts       []export.Option

	mu sync.Mutex
	// election the disclosure flags belong to
	electionID string
}

// Snapshot is the rendered form of the view.
type Snapshot struct {
	State State
	// Header is set when the guardian set is ready.
	Header    string
	Guardians []GuardianView
}

// NewView returns a view using ctrl for retrievals and sink for exports.
func NewView(ctrl *Controller, sink export.Sink, opts ...export.Option) *View {
	return &View{
		ctrl:       ctrl,
		disclosure: NewDisclosure(),
		sink:       sink,
		opts:       opts,
	}
}

// SetElection selects the election to show.
func (v *View) SetElection(electionID string) {
	v.ctrl.SetElection(electionID)
	v.track(v.ctrl.State())
}

// Refresh fetches the guardians of the current election again. Disclosure
// flags are kept.
func (v *View) Refresh() {
	v.ctrl.Refresh()
}

// State returns the controller state.
func (v *View) State() State {
	return v.ctrl.State()
}

// Wait waits for the current retrieval, see Controller.Wait.
func (v *View) Wait(ctx context.Context) (State, error) {
	return v.ctrl.Wait(ctx)
}

// Disclosure returns the disclosure store of the view.
func (v *View) Disclosure() *Disclosure {
	return v.disclosure
}

// Close releases the controller.
func (v *View) Close() {
	v.ctrl.Close()
}

// Render returns the display form of the current state.
func (v *View) Render() Snapshot {
	st := v.track(v.ctrl.State())
	s := Snapshot{State: st}
	if st.Status != StatusReady {
		return s
	}
	s.Header = HeaderText(len(st.Guardians))
	s.Guardians = make([]GuardianView, 0, len(st.Guardians))
	for _, g := range st.Guardians {
		s.Guardians = append(s.Guardians, RenderGuardian(g, v.disclosure))
	}
	return s
}

// Guardian returns the guardian with the given sequence order.
func (v *View) Guardian(sequence int) (types.Guardian, error) {
	st, err := v.ready()
	if err != nil {
		return types.Guardian{}, err
	}
	for _, g := range st.Guardians {
		if g.SequenceOrder == sequence {
			return g, nil
		}
	}
	return types.Guardian{}, fmt.Errorf("%w: sequence %d", ErrGuardianNotFound, sequence)
}

// Toggle flips the disclosure flag of a field and returns the new value.
// Fields short enough to be shown in full have no control, toggling them
// does nothing and returns false.
func (v *View) Toggle(id types.GuardianID, f types.ArtifactField) (bool, error) {
	_, g, err := v.guardianByID(id)
	if err != nil {
		return false, err
	}
	if !RenderField(g.Artifact(f), false).Toggleable {
		return false, nil
	}
	return v.disclosure.Toggle(id, f), nil
}

// ExportField exports one artifact field of a guardian of the current set.
func (v *View) ExportField(id types.GuardianID, f types.ArtifactField) (*export.Result, error) {
	st, g, err := v.guardianByID(id)
	if err != nil {
		return nil, err
	}
	return v.composer(st).ExportArtifact(g, f)
}

// ExportGuardian exports the complete record of a guardian of the current
// set.
func (v *View) ExportGuardian(id types.GuardianID) (*export.Result, error) {
	st, g, err := v.guardianByID(id)
	if err != nil {
		return nil, err
	}
	return v.composer(st).ExportGuardian(g)
}

// ExportAll exports the current guardian set.
func (v *View) ExportAll() (*export.Result, error) {
	st, err := v.ready()
	if err != nil {
		return nil, err
	}
	return v.composer(st).ExportAll(st.Guardians)
}

// composer returns a composer labelled with the election of st.
func (v *View) composer(st State) *export.Composer {
	return export.NewComposer(st.ElectionID, v.sink, v.opts...)
}

// track resets the disclosure store when st belongs to another election
// than the last one seen.
func (v *View) track(st State) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if st.ElectionID != v.electionID {
		v.disclosure.Reset()
		v.electionID = st.ElectionID
	}
	return st
}

func (v *View) ready() (State, error) {
	st := v.track(v.ctrl.State())
	if st.Status != StatusReady {
		return st, fmt.Errorf("%w (%s)", ErrNotReady, st.Status)
	}
	return st, nil
}

func (v *View) guardianByID(id types.GuardianID) (State, types.Guardian, error) {
	st, err := v.ready()
	if err != nil {
		return st, types.Guardian{}, err
	}
	for _, g := range st.Guardians {
		if g.ID == id {
			return st, g, nil
		}
	}
	return st, types.Guardian{}, fmt.Errorf("%w: %s", ErrGuardianNotFound, id)
}
