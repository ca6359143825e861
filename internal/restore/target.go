package restore

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrBadTarget indicates unusable recovery-target arguments.
var ErrBadTarget = errors.New("invalid recovery target")

// targetTimeFormat matches the timestamp layout users pass on the command
// line, the same layout the catalog records use.
const targetTimeFormat = "2006-01-02 15:04:05"

// RecoveryTarget is the point a restore should reach: a wall-clock time, a
// transaction id, or neither ("latest").
type RecoveryTarget struct {
	Time      time.Time
	XID       uint32
	Inclusive bool

	HasTime bool
	HasXID  bool
}

// ParseRecoveryTarget builds a RecoveryTarget from raw CLI arguments.
// Empty strings mean the dimension is unconstrained.
func ParseRecoveryTarget(timeStr, xidStr string, inclusive bool) (*RecoveryTarget, error) {
	rt := &RecoveryTarget{Inclusive: inclusive}

	if timeStr != "" {
		t, err := time.ParseInLocation(targetTimeFormat, timeStr, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: time %q", ErrBadTarget, timeStr)
		}
		rt.Time = t
		rt.HasTime = true
	}
	if xidStr != "" {
		xid, err := strconv.ParseUint(xidStr, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: xid %q", ErrBadTarget, xidStr)
		}
		rt.XID = uint32(xid)
		rt.HasXID = true
	}

	return rt, nil
}
