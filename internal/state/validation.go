package state

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/inery/inery/config"
	"github.com/inery/inery/crypto"
	"github.com/inery/inery/libs/log"
	tmmath "github.com/inery/inery/libs/math"
	"github.com/inery/inery/types"
)

// ValidatedHeader is a header that passed validation, with everything the
// validation derived from it.
type ValidatedHeader struct {
	Header     *types.SignedBlockHeader
	ID         types.BlockID
	BlockNum   uint32
	Extensions types.HeaderExtensions
	Signer     crypto.PubKey
	// Relevant is the number of recovered keys that belong to the master's
	// authority.
	Relevant int
	// ScheduleChange is the schedule the header proposes, from either the
	// schedule change extension or the upgraded legacy schedule.
	ScheduleChange *types.MasterAuthoritySchedule
}

// scheduleSnapshot is the schedule state a header is validated against.
type scheduleSnapshot struct {
	active  *types.MasterAuthoritySchedule
	pending *PendingSchedule
}

// HeaderValidator checks signed headers against the active master schedule.
type HeaderValidator struct {
	schedules *ScheduleTracker
	recoverer crypto.SignatureRecoverer
	cfg       *config.ChainConfig

	logger  log.Logger
	metrics *Metrics
}

// NewHeaderValidator returns a validator reading schedules from tracker.
func NewHeaderValidator(
	cfg *config.ChainConfig,
	tracker *ScheduleTracker,
	recoverer crypto.SignatureRecoverer,
	logger log.Logger,
	metrics *Metrics,
) *HeaderValidator {
	return &HeaderValidator{
		schedules: tracker,
		recoverer: recoverer,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

func (v *HeaderValidator) snapshot() scheduleSnapshot {
	snap := scheduleSnapshot{active: v.schedules.Active()}
	if p, ok := v.schedules.Pending(); ok {
		snap.pending = &p
	}
	return snap
}

// ValidateHeader validates sh against the current schedules.
func (v *HeaderValidator) ValidateHeader(sh *types.SignedBlockHeader) (*ValidatedHeader, error) {
	return v.validate(sh, v.snapshot())
}

func (v *HeaderValidator) validate(sh *types.SignedBlockHeader, snap scheduleSnapshot) (*ValidatedHeader, error) {
	vh, err := v.validateHeader(sh, snap)
	if err != nil {
		v.metrics.HeadersRejected.With("reason", rejectReason(err)).Add(1)
		v.logger.Debug("rejected block header", "block", sh.BlockNum(), "master", sh.Master, "err", err)
		return nil, err
	}
	v.metrics.HeadersValidated.Add(1)
	return vh, nil
}

func (v *HeaderValidator) validateHeader(sh *types.SignedBlockHeader, snap scheduleSnapshot) (*ValidatedHeader, error) {
	if err := sh.ValidateBasic(); err != nil {
		return nil, err
	}
	exts, err := sh.ValidateAndExtractHeaderExtensions()
	if err != nil {
		return nil, err
	}

	blockNum := sh.BlockNum()
	change, hasChange := exts.MasterScheduleChange()
	legacy, hasLegacy := sh.LegacySchedule()
	if hasChange && hasLegacy {
		return nil, ErrLegacyScheduleConflict
	}

	var proposed *types.MasterAuthoritySchedule
	if blockNum < v.cfg.ExtensionScheduleActivationBlock {
		if hasChange {
			return nil, ErrScheduleChangeBeforeActivation
		}
		if sh.ScheduleVersion != snap.active.Version {
			return nil, fmt.Errorf("%w: got %d, active %d",
				ErrScheduleVersionMismatch, sh.ScheduleVersion, snap.active.Version)
		}
		if hasLegacy {
			proposed = types.NewMasterAuthorityScheduleFromLegacy(legacy)
		}
	} else {
		if hasLegacy || sh.ScheduleVersion != 0 {
			return nil, ErrLegacyFieldsAfterActivation
		}
		if hasChange {
			proposed = change.Schedule()
		}
	}

	master, ok := snap.active.Master(sh.Master)
	if !ok {
		return nil, fmt.Errorf("%w: %v in schedule %d", ErrUnknownMaster, sh.Master, snap.active.Version)
	}

	// Recovery failures are returned as they are.
	signer, err := v.recoverer.RecoverPubKey(sh.Digest(), sh.MasterSignature)
	if err != nil {
		return nil, err
	}
	presented := types.NewKeySet(signer)
	satisfied, relevant := master.KeysSatisfyAndRelevant(presented)
	if relevant < len(presented) {
		return nil, fmt.Errorf("%w: %v for %v", ErrIrrelevantSignature, signer, sh.Master)
	}
	if !satisfied {
		return nil, ErrAuthorityUnderweight{Master: sh.Master, Relevant: relevant}
	}

	if proposed != nil {
		if err := proposed.ValidateBasic(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScheduleChange, err)
		}
		if err := checkVersion(proposed.Version, snap.active, snap.pending); err != nil {
			return nil, err
		}
	}

	return &ValidatedHeader{
		Header:         sh,
		ID:             sh.ID(),
		BlockNum:       blockNum,
		Extensions:     exts,
		Signer:         signer,
		Relevant:       relevant,
		ScheduleChange: proposed,
	}, nil
}

// ValidateHeaders validates headers concurrently on ValidationWorkers
// goroutines. Every header is checked against the schedules as they were
// when the call started. The first failure cancels the remaining work.
func (v *HeaderValidator) ValidateHeaders(ctx context.Context, headers []*types.SignedBlockHeader) ([]*ValidatedHeader, error) {
	snap := v.snapshot()
	results := make([]*ValidatedHeader, len(headers))

	workers := v.cfg.ValidationWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(headers) {
		workers = len(headers)
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := range headers {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					return err
				}
				vh, err := v.validate(headers[i], snap)
				if err != nil {
					return fmt.Errorf("header %d (block %d): %w", i, headers[i].BlockNum(), err)
				}
				results[i] = vh
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ApplyHeaders validates headers in order, in batches of at most batchSize,
// and applies them to the tracker. After each header, the block lag blocks
// behind it is marked irreversible. A batch ends at the first header that
// carries a schedule change and at the header that promotes the pending
// schedule, so every header is validated against the schedules in effect
// when it is applied. It returns the number of headers applied.
func ApplyHeaders(
	ctx context.Context,
	v *HeaderValidator,
	tracker *ScheduleTracker,
	headers []*types.SignedBlockHeader,
	batchSize int,
	lag uint32,
) (int, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	applied := 0
	for start := 0; start < len(headers); {
		end := start + batchSize
		if end > len(headers) {
			end = len(headers)
		}
		end = batchBound(headers, start, end, tracker, lag)

		validated, err := v.ValidateHeaders(ctx, headers[start:end])
		if err != nil {
			return applied, err
		}

		for _, vh := range validated {
			if err := tracker.Apply(vh); err != nil {
				return applied, fmt.Errorf("applying block %d: %w", vh.BlockNum, err)
			}
			applied++

			if vh.BlockNum > lag {
				if _, err := tracker.MarkIrreversible(vh.BlockNum - lag); err != nil {
					return applied, err
				}
			}
		}
		start = end
	}
	return applied, nil
}

// batchBound shortens headers[start:end] to end with the first header that
// may change the schedules: one carrying a schedule change, or one that makes
// the pending schedule's block irreversible.
func batchBound(headers []*types.SignedBlockHeader, start, end int, tracker *ScheduleTracker, lag uint32) int {
	var promoteAt uint32
	p, hasPending := tracker.Pending()
	if hasPending {
		promoteAt = tmmath.SaturatingAddUint32(p.BlockNum, lag)
	}
	for k := start; k < end; k++ {
		if carriesScheduleChange(headers[k]) {
			return k + 1
		}
		if hasPending && headers[k].BlockNum() >= promoteAt {
			return k + 1
		}
	}
	return end
}

// carriesScheduleChange reports whether sh proposes a schedule, without
// decoding its extensions.
func carriesScheduleChange(sh *types.SignedBlockHeader) bool {
	if _, ok := sh.LegacySchedule(); ok {
		return true
	}
	for _, ext := range sh.HeaderExtensions {
		if ext.Type == types.MasterScheduleChangeExtensionID {
			return true
		}
	}
	return false
}
