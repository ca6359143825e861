package catalog

import (
	"errors"
	"testing"
)

func TestTransition_Lifecycle(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
		want  Status
	}{
		{StatusInvalid, EventStart, StatusRunning},
		{StatusRunning, EventFinish, StatusDone},
		{StatusDone, EventVerdictOK, StatusOK},
		{StatusDone, EventVerdictCorrupt, StatusCorrupt},
		{StatusOK, EventVerdictCorrupt, StatusCorrupt},
		{StatusCorrupt, EventVerdictOK, StatusOK},
		{StatusRunning, EventDemote, StatusError},
		{StatusDeleting, EventDemote, StatusError},
		{StatusOK, EventDelete, StatusDeleting},
		{StatusDeleting, EventDeleted, StatusDeleted},
	}

	for _, tc := range cases {
		got, err := Transition(tc.from, tc.event)
		if err != nil {
			t.Fatalf("Transition(%s, %s): %v", tc.from, tc.event, err)
		}
		if got != tc.want {
			t.Fatalf("Transition(%s, %s) = %s, want %s", tc.from, tc.event, got, tc.want)
		}
	}
}

func TestTransition_Illegal(t *testing.T) {
	cases := []struct {
		from  Status
		event Event
	}{
		{StatusDeleted, EventVerdictOK},
		{StatusError, EventVerdictOK},
		{StatusRunning, EventVerdictCorrupt},
		{StatusOK, EventDemote},
		{StatusDone, EventStart},
	}

	for _, tc := range cases {
		if _, err := Transition(tc.from, tc.event); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Transition(%s, %s): want ErrInvalidTransition, got %v",
				tc.from, tc.event, err)
		}
	}
}

func TestParseStatus_RoundTrip(t *testing.T) {
	statuses := []Status{
		StatusInvalid, StatusRunning, StatusDone, StatusOK,
		StatusCorrupt, StatusError, StatusDeleting, StatusDeleted,
	}
	for _, s := range statuses {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%s): %v", s, err)
		}
		if got != s {
			t.Fatalf("ParseStatus(%s) = %s", s, got)
		}
	}

	if _, err := ParseStatus("BOGUS"); err == nil {
		t.Fatal("ParseStatus accepted unknown status")
	}
}
