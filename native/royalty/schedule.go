package royalty

import (
	"errors"
	"fmt"
)

// BpsDenominator is the basis-point scale used throughout the marketplace.
const BpsDenominator = 10_000

// ErrInvalidSchedule flags a malformed royalty schedule: rates summing past
// 100% or entries without a recipient.
var ErrInvalidSchedule = errors.New("royalty: invalid schedule")

// Royalty is one creator payout rate. Schedules are data, not code: they are
// registered alongside the asset and applied on every settlement.
type Royalty struct {
	Recipient [20]byte
	Bps       uint32
}

// Schedule is an ordered list of royalty rates. Order matters for floor
// truncation, so it is preserved exactly as registered.
type Schedule []Royalty

// Clone returns a copy of the schedule.
func (s Schedule) Clone() Schedule {
	if len(s) == 0 {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// TotalBps sums the schedule's rates.
func (s Schedule) TotalBps() uint64 {
	var total uint64
	for _, r := range s {
		total += uint64(r.Bps)
	}
	return total
}

// Validate rejects schedules whose rates exceed 100% in aggregate or that name
// a zero recipient.
func (s Schedule) Validate() error {
	for i, r := range s {
		if r.Recipient == ([20]byte{}) {
			return fmt.Errorf("%w: entry %d has zero recipient", ErrInvalidSchedule, i)
		}
	}
	if s.TotalBps() > BpsDenominator {
		return fmt.Errorf("%w: total %d bps exceeds %d", ErrInvalidSchedule, s.TotalBps(), BpsDenominator)
	}
	return nil
}
