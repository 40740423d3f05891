package state

import (
	"errors"
	"fmt"

	"github.com/inery/inery/types"
)

var (
	ErrUnknownMaster                  = errors.New("header master is not in the active schedule")
	ErrIrrelevantSignature            = errors.New("signature key is not part of the master's authority")
	ErrLegacyScheduleConflict         = errors.New("header carries both a legacy schedule and a schedule change extension")
	ErrLegacyFieldsAfterActivation    = errors.New("legacy schedule fields are set after schedule extension activation")
	ErrScheduleChangeBeforeActivation = errors.New("schedule change extension before schedule extension activation")
	ErrScheduleVersionMismatch        = errors.New("header schedule version does not match the active schedule")
	ErrInvalidScheduleChange          = errors.New("invalid proposed schedule")
	ErrNoGenesisSchedule              = errors.New("store is empty and no genesis document was given")
)

// ErrAuthorityUnderweight is returned when the keys recovered from a header
// do not reach the threshold of the master's authority.
type ErrAuthorityUnderweight struct {
	Master   types.AccountName
	Relevant int
}

func (e ErrAuthorityUnderweight) Error() string {
	return fmt.Sprintf("authority of %v is not satisfied by %d relevant key(s)", e.Master, e.Relevant)
}

// ErrScheduleVersionNotMonotonic is returned when a proposed schedule does not
// advance past the active or pending schedule version.
type ErrScheduleVersionNotMonotonic struct {
	Proposed uint32
	Current  uint32
}

func (e ErrScheduleVersionNotMonotonic) Error() string {
	return fmt.Sprintf("proposed schedule version %d must be greater than %d", e.Proposed, e.Current)
}

// rejectReason labels a validation error for metrics.
func rejectReason(err error) string {
	var (
		underweight ErrAuthorityUnderweight
		monotonic   ErrScheduleVersionNotMonotonic
	)
	switch {
	case errors.As(err, &underweight):
		return "underweight"
	case errors.As(err, &monotonic):
		return "non_monotonic_version"
	case errors.Is(err, types.ErrUnknownHeaderExtension),
		errors.Is(err, types.ErrMalformedHeaderExtension),
		errors.Is(err, types.ErrDuplicateHeaderExtension):
		return "malformed_extension"
	case errors.Is(err, ErrLegacyScheduleConflict),
		errors.Is(err, ErrLegacyFieldsAfterActivation),
		errors.Is(err, ErrScheduleChangeBeforeActivation),
		errors.Is(err, ErrScheduleVersionMismatch):
		return "legacy_conflict"
	case errors.Is(err, ErrUnknownMaster):
		return "unknown_master"
	case errors.Is(err, ErrIrrelevantSignature):
		return "irrelevant_signature"
	case errors.Is(err, ErrInvalidScheduleChange):
		return "invalid_schedule"
	}
	return "invalid_header"
}
