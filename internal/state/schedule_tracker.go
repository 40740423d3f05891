package state

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/inery/inery/libs/log"
	"github.com/inery/inery/types"
)

// ScheduleTracker owns the active master schedule and the schedule waiting
// to replace it.
//
// Readers call Active and Pending without locking. A schedule is replaced
// wholesale by storing a new pointer, so readers see either the old or the
// new schedule. Writers are serialized by mtx and persist before they
// publish.
type ScheduleTracker struct {
	mtx     sync.Mutex
	store   Store
	active  atomic.Pointer[types.MasterAuthoritySchedule]
	pending atomic.Pointer[PendingSchedule]

	logger  log.Logger
	metrics *Metrics
}

// NewScheduleTracker loads the active and pending schedules from store. An
// empty store is bootstrapped with the genesis schedule.
func NewScheduleTracker(
	store Store,
	genDoc *types.GenesisDoc,
	logger log.Logger,
	metrics *Metrics,
) (*ScheduleTracker, error) {
	t := &ScheduleTracker{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}

	active, err := store.LoadActive()
	if err != nil {
		return nil, fmt.Errorf("loading active schedule: %w", err)
	}
	if active == nil {
		if genDoc == nil {
			return nil, ErrNoGenesisSchedule
		}
		active = genDoc.InitialMasterSchedule()
		if err := active.ValidateBasic(); err != nil {
			return nil, fmt.Errorf("genesis schedule: %w", err)
		}
		if err := store.Bootstrap(active); err != nil {
			return nil, fmt.Errorf("saving genesis schedule: %w", err)
		}
		logger.Info("bootstrapped master schedule from genesis", "version", active.Version, "masters", active.Size())
	}
	t.active.Store(active)
	metrics.ScheduleVersion.Set(float64(active.Version))

	pending, err := store.LoadPending()
	if err != nil {
		return nil, fmt.Errorf("loading pending schedule: %w", err)
	}
	if pending != nil {
		t.pending.Store(pending)
	}
	return t, nil
}

// Active returns the active schedule. The returned value must not be
// modified.
func (t *ScheduleTracker) Active() *types.MasterAuthoritySchedule {
	return t.active.Load()
}

// Pending returns the proposed schedule waiting for its block to become
// irreversible.
func (t *ScheduleTracker) Pending() (PendingSchedule, bool) {
	p := t.pending.Load()
	if p == nil {
		return PendingSchedule{}, false
	}
	return *p, true
}

// checkVersion returns an error unless version is past both the active and
// the pending schedule.
func checkVersion(version uint32, active *types.MasterAuthoritySchedule, pending *PendingSchedule) error {
	current := active.Version
	if pending != nil && pending.Schedule.Version > current {
		current = pending.Schedule.Version
	}
	if version <= current {
		return ErrScheduleVersionNotMonotonic{Proposed: version, Current: current}
	}
	return nil
}

// Propose records s, carried by block blockNum, as the pending schedule. It
// replaces an earlier pending schedule.
func (t *ScheduleTracker) Propose(blockNum uint32, s *types.MasterAuthoritySchedule) error {
	if err := s.ValidateBasic(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScheduleChange, err)
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	if err := checkVersion(s.Version, t.active.Load(), t.pending.Load()); err != nil {
		return err
	}

	p := PendingSchedule{BlockNum: blockNum, Schedule: s}
	if err := t.store.SavePending(p); err != nil {
		return fmt.Errorf("saving pending schedule: %w", err)
	}
	t.pending.Store(&p)

	t.logger.Info("proposed master schedule", "version", s.Version, "block", blockNum, "schedule", s)
	return nil
}

// MarkIrreversible promotes the pending schedule if the block that proposed
// it is at or below irreversible. It reports whether a schedule was promoted.
func (t *ScheduleTracker) MarkIrreversible(irreversible uint32) (bool, error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	p := t.pending.Load()
	if p == nil || p.BlockNum > irreversible {
		return false, nil
	}

	if err := t.store.Promote(p.Schedule); err != nil {
		return false, fmt.Errorf("promoting schedule %d: %w", p.Schedule.Version, err)
	}
	prev := t.active.Swap(p.Schedule)
	t.pending.Store(nil)

	t.metrics.ScheduleChanges.Add(1)
	t.metrics.ScheduleVersion.Set(float64(p.Schedule.Version))
	t.logger.Info("promoted master schedule",
		"version", p.Schedule.Version,
		"previous_version", prev.Version,
		"proposed_at", p.BlockNum,
		"irreversible", irreversible,
	)
	return true, nil
}

// Apply proposes the schedule change carried by a validated header, if any.
func (t *ScheduleTracker) Apply(vh *ValidatedHeader) error {
	if vh.ScheduleChange == nil {
		return nil
	}
	return t.Propose(vh.BlockNum, vh.ScheduleChange)
}
