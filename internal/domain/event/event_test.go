package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{name: "valid - submitted", eventType: TypeRequestSubmitted, want: true},
		{name: "valid - advanced", eventType: TypeRequestAdvanced, want: true},
		{name: "valid - approved", eventType: TypeRequestApproved, want: true},
		{name: "valid - rejected", eventType: TypeRequestRejected, want: true},
		{name: "invalid - unknown type", eventType: Type("unknown.type"), want: false},
		{name: "invalid - empty string", eventType: Type(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEvent(t *testing.T) {
	before := time.Now()
	evt := NewEvent(TypeRequestSubmitted, "req-1", "user-1", map[string]interface{}{"level": "hod"})

	if evt.ID == "" {
		t.Error("NewEvent() should generate an ID")
	}
	if evt.RequestID != "req-1" || evt.ActorID != "user-1" {
		t.Errorf("NewEvent() request/actor = %s/%s", evt.RequestID, evt.ActorID)
	}
	if evt.Timestamp.Before(before) {
		t.Error("NewEvent() timestamp should not precede creation")
	}
	if got := evt.GetPayloadString("level"); got != "hod" {
		t.Errorf("GetPayloadString() = %v, want hod", got)
	}

	other := NewEvent(TypeRequestSubmitted, "req-1", "user-1", nil)
	if other.ID == evt.ID {
		t.Error("event IDs should be unique")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRequestAdvanced, "req-1", "user-1", map[string]interface{}{"approved": true})

	updated := original.WithPayload("comment", "ok")

	if _, ok := original.Payload["comment"]; ok {
		t.Error("WithPayload() must not modify the original event")
	}
	if got := updated.GetPayloadString("comment"); got != "ok" {
		t.Errorf("GetPayloadString() = %v, want ok", got)
	}
	if !updated.GetPayloadBool("approved") {
		t.Error("WithPayload() should keep existing payload keys")
	}
	if updated.ID != original.ID {
		t.Error("WithPayload() should keep the event ID")
	}
}

func TestEvent_GetPayloadMissing(t *testing.T) {
	evt := NewEvent(TypeRequestRejected, "req-1", "user-1", map[string]interface{}{"approved": "yes"})

	if got := evt.GetPayloadString("missing"); got != "" {
		t.Errorf("GetPayloadString() = %v, want empty", got)
	}
	if evt.GetPayloadBool("approved") {
		t.Error("GetPayloadBool() should be false for non-bool values")
	}
}
