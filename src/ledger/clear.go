package ledger

import (
	"context"
)

type ClearStep string

const (
	StepIdle            ClearStep = "idle"
	StepOfferedArchive  ClearStep = "offered_archive"
	StepAwaitingConfirm ClearStep = "awaiting_confirm"
	StepDone            ClearStep = "done"
	StepCancelled       ClearStep = "cancelled"
)

// CurrentTargetName is the confirmation phrase for clearing the current view.
const CurrentTargetName = "the current view"

// TargetName is the exact text a user must confirm to clear partition k.
func TargetName(k Key) string {
	if k == Current {
		return CurrentTargetName
	}
	return string(k)
}

// ClearFlow is the two-step destructive confirmation:
// idle -> offered_archive -> awaiting_confirm -> done.
// Cancel returns to cancelled from any step.
type ClearFlow struct {
	step       ClearStep
	target     Key
	snapshotID int64
	deleted    int64
}

type ClearState struct {
	Step       ClearStep `json:"step"`
	Target     string    `json:"target"`
	Confirm    string    `json:"confirm"`
	SnapshotID int64     `json:"snapshot_id,omitempty"`
	Deleted    int64     `json:"deleted"`
}

func (f *ClearFlow) State() ClearState {
	step := f.step
	if step == "" {
		step = StepIdle
	}
	return ClearState{
		Step:       step,
		Target:     string(f.target),
		Confirm:    TargetName(f.target),
		SnapshotID: f.snapshotID,
		Deleted:    f.deleted,
	}
}

// Begin starts a new flow for k. A flow in progress is replaced.
func (f *ClearFlow) Begin(k Key) {
	*f = ClearFlow{step: StepOfferedArchive, target: k}
}

// Archived records that a copy was kept and moves on to confirmation.
func (f *ClearFlow) Archived(snapshotID int64) error {
	if f.step != StepOfferedArchive {
		return ErrInvalidStep
	}
	f.snapshotID = snapshotID
	f.step = StepAwaitingConfirm
	return nil
}

// Skip declines the archive offer.
func (f *ClearFlow) Skip() error {
	if f.step != StepOfferedArchive {
		return ErrInvalidStep
	}
	f.step = StepAwaitingConfirm
	return nil
}

// Check verifies that confirm names the target without changing state.
func (f *ClearFlow) Check(confirm string) error {
	if f.step != StepAwaitingConfirm {
		return ErrInvalidStep
	}
	if confirm != TargetName(f.target) {
		return ErrConfirmationMismatch
	}
	return nil
}

func (f *ClearFlow) Finish(deleted int64) {
	f.step = StepDone
	f.deleted = deleted
}

func (f *ClearFlow) Cancel() {
	if f.step == "" || f.step == StepIdle {
		return
	}
	f.step = StepCancelled
}

// BeginClear offers to archive partition k before it is cleared.
func (s *Session) BeginClear(k Key) (ClearState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ClearState{}, ErrSessionClosed
	}
	if len(s.proj.cache.Partition(k)) == 0 {
		return s.clear.State(), ErrEmptyPartition
	}
	s.clear.Begin(k)
	return s.clear.State(), nil
}

// ClearArchive accepts the archive offer: a snapshot of the target is stored
// before the flow moves to confirmation.
func (s *Session) ClearArchive(ctx context.Context, label string) (ClearState, error) {
	s.mu.Lock()
	if s.clear.step != StepOfferedArchive {
		st := s.clear.State()
		s.mu.Unlock()
		return st, ErrInvalidStep
	}
	target := s.clear.target
	s.mu.Unlock()

	snap, err := s.Snapshot(ctx, target, label)
	if err != nil {
		return s.ClearState(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clear.target != target {
		return s.clear.State(), ErrInvalidStep
	}
	err = s.clear.Archived(snap.ID)
	return s.clear.State(), err
}

func (s *Session) ClearSkip() (ClearState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.clear.Skip()
	return s.clear.State(), err
}

// ClearConfirm deletes the target once confirm names it exactly.
func (s *Session) ClearConfirm(ctx context.Context, confirm string) (ClearState, error) {
	s.mu.Lock()
	if err := s.clear.Check(confirm); err != nil {
		st := s.clear.State()
		s.mu.Unlock()
		return st, err
	}
	target := s.clear.target
	s.mu.Unlock()

	deleted, err := s.clearPartition(ctx, target)
	if err != nil {
		return s.ClearState(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear.Finish(deleted)
	return s.clear.State(), nil
}

func (s *Session) ClearCancel() ClearState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear.Cancel()
	return s.clear.State()
}

func (s *Session) ClearState() ClearState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear.State()
}
