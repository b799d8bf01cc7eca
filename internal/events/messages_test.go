package events

import (
	"testing"
	"time"
)

func TestTripActivityMessageRoundTrip(t *testing.T) {
	msg := NewTripActivityMessage("trip-1", ActionExpenseCreated, "exp-9", "user-3")
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := TripActivityMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TripID != "trip-1" || got.Action != ActionExpenseCreated || got.SubjectID != "exp-9" || got.Actor != "user-3" {
		t.Fatalf("round trip lost fields: %+v", got)
	}
	if !got.Timestamp.Truncate(time.Second).Equal(msg.Timestamp.Truncate(time.Second)) {
		t.Fatalf("timestamp drift: %v vs %v", got.Timestamp, msg.Timestamp)
	}
}

func TestTripActivityMessageFromJSONInvalid(t *testing.T) {
	if _, err := TripActivityMessageFromJSON([]byte(`{`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
