package types

import (
	"fmt"
	"math"
	"time"

	tmmath "github.com/inery/inery/libs/math"
)

const (
	// BlockIntervalMs is the length of one block slot.
	BlockIntervalMs = 500
	// BlockTimestampEpochMs is 2000-01-01T00:00:00Z in unix milliseconds.
	BlockTimestampEpochMs = 946684800000

	blockTimestampFormat = "2006-01-02T15:04:05.000"
)

// BlockTimestamp counts block slots since BlockTimestampEpochMs.
type BlockTimestamp uint32

// NewBlockTimestamp returns the slot containing t. Times before the epoch or
// past the last representable slot are rejected.
func NewBlockTimestamp(t time.Time) (BlockTimestamp, error) {
	ms := t.UnixMilli() - BlockTimestampEpochMs
	if ms < 0 {
		return 0, fmt.Errorf("time %v is before the block timestamp epoch", t)
	}
	slot := ms / BlockIntervalMs
	if slot > math.MaxUint32 {
		return 0, fmt.Errorf("time %v is out of block timestamp range", t)
	}
	return BlockTimestamp(slot), nil
}

// Time returns the start of the slot in UTC.
func (ts BlockTimestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)*BlockIntervalMs + BlockTimestampEpochMs).UTC()
}

// Next returns the following slot.
func (ts BlockTimestamp) Next() BlockTimestamp {
	return BlockTimestamp(tmmath.SafeAddUint32(uint32(ts), 1))
}

func (ts BlockTimestamp) String() string {
	return ts.Time().Format(blockTimestampFormat)
}

func (ts BlockTimestamp) MarshalText() ([]byte, error) {
	return []byte(ts.String()), nil
}

func (ts *BlockTimestamp) UnmarshalText(text []byte) error {
	t, err := time.Parse(blockTimestampFormat, string(text))
	if err != nil {
		// Accept RFC 3339 as well, e.g. from hand-written genesis files.
		if t, err = time.Parse(time.RFC3339Nano, string(text)); err != nil {
			return fmt.Errorf("parsing block timestamp %q: %w", text, err)
		}
	}
	v, err := NewBlockTimestamp(t)
	if err != nil {
		return err
	}
	*ts = v
	return nil
}
