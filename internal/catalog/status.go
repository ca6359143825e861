package catalog

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a backup.
type Status int

const (
	StatusInvalid Status = iota
	StatusRunning
	StatusDone
	StatusOK
	StatusCorrupt
	StatusError
	StatusDeleting
	StatusDeleted
)

var statusNames = map[Status]string{
	StatusInvalid:  "INVALID",
	StatusRunning:  "RUNNING",
	StatusDone:     "DONE",
	StatusOK:       "OK",
	StatusCorrupt:  "CORRUPT",
	StatusError:    "ERROR",
	StatusDeleting: "DELETING",
	StatusDeleted:  "DELETED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "INVALID"
}

// ParseStatus maps a status name from a record file back to a Status.
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if s == name {
			return st, nil
		}
	}
	return StatusInvalid, fmt.Errorf("unknown status %q", s)
}

// Event is a lifecycle transition trigger.
type Event int

const (
	// EventStart begins a backup (taken by the backup writer, not here).
	EventStart Event = iota
	// EventFinish marks the data copy complete.
	EventFinish
	// EventVerdictOK and EventVerdictCorrupt are issued by validation only.
	EventVerdictOK
	EventVerdictCorrupt
	// EventDemote forces an interrupted backup to ERROR during cleanup.
	EventDemote
	// EventDelete and EventDeleted drive removal.
	EventDelete
	EventDeleted
)

// ErrInvalidTransition reports a lifecycle transition the state machine
// does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

var transitions = map[Event]map[Status]Status{
	EventStart: {
		StatusInvalid: StatusRunning,
	},
	EventFinish: {
		StatusRunning: StatusDone,
	},
	EventVerdictOK: {
		StatusDone:    StatusOK,
		StatusOK:      StatusOK,
		StatusCorrupt: StatusOK,
	},
	EventVerdictCorrupt: {
		StatusDone:    StatusCorrupt,
		StatusOK:      StatusCorrupt,
		StatusCorrupt: StatusCorrupt,
	},
	EventDemote: {
		StatusRunning:  StatusError,
		StatusDeleting: StatusError,
	},
	EventDelete: {
		StatusDone:    StatusDeleting,
		StatusOK:      StatusDeleting,
		StatusCorrupt: StatusDeleting,
		StatusError:   StatusDeleting,
	},
	EventDeleted: {
		StatusDeleting: StatusDeleted,
	},
}

// Transition applies event to current and returns the next status. Illegal
// combinations fail with ErrInvalidTransition so ad hoc status assignment
// cannot bypass the lifecycle.
func Transition(current Status, event Event) (Status, error) {
	if next, ok := transitions[event][current]; ok {
		return next, nil
	}
	return current, fmt.Errorf("%w: %s does not apply to %s", ErrInvalidTransition, event, current)
}

var eventNames = map[Event]string{
	EventStart:          "start",
	EventFinish:         "finish",
	EventVerdictOK:      "verdict-ok",
	EventVerdictCorrupt: "verdict-corrupt",
	EventDemote:         "demote",
	EventDelete:         "delete",
	EventDeleted:        "deleted",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}
