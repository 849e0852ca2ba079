package telemetry

import (
	"testing"

	"github.com/posthog/posthog-go"
)

// captureEnqueuer records enqueued messages instead of sending them.
type captureEnqueuer struct {
	msgs   []posthog.Message
	closed bool
}

func (c *captureEnqueuer) Enqueue(m posthog.Message) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *captureEnqueuer) Close() error {
	c.closed = true
	return nil
}

func TestTrackSendsAnonymousEvent(t *testing.T) {
	enq := &captureEnqueuer{}
	client := newPostHogClientWithEnqueuer(enq, &Config{Enabled: true, AnonymousID: "anon-1"}, "0.1.0")

	client.Track("chat_turn", Properties{"creates": 2})

	if len(enq.msgs) != 1 {
		t.Fatalf("enqueued %d messages, want 1", len(enq.msgs))
	}
	capture, ok := enq.msgs[0].(posthog.Capture)
	if !ok {
		t.Fatalf("message type = %T", enq.msgs[0])
	}
	if capture.DistinctId != "anon-1" || capture.Event != "chat_turn" {
		t.Errorf("capture = %+v", capture)
	}
	if capture.Properties["creates"] != 2 {
		t.Errorf("properties = %v", capture.Properties)
	}
	if capture.Properties["cli_version"] != "0.1.0" {
		t.Error("version property missing")
	}
	if capture.Properties["$process_person_profile"] != false {
		t.Error("person profile processing must be disabled")
	}
}

func TestTrackDisabledIsNoOp(t *testing.T) {
	enq := &captureEnqueuer{}
	client := newPostHogClientWithEnqueuer(enq, &Config{Enabled: false, AnonymousID: "anon-1"}, "0.1.0")

	client.Track("chat_turn", nil)
	if len(enq.msgs) != 0 {
		t.Errorf("disabled client sent %d events", len(enq.msgs))
	}
}

func TestCloseFlushesClient(t *testing.T) {
	enq := &captureEnqueuer{}
	client := newPostHogClientWithEnqueuer(enq, &Config{Enabled: true, AnonymousID: "anon-1"}, "0.1.0")
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !enq.closed {
		t.Error("underlying client not closed")
	}
}

func TestUninitializedClientIsSafe(t *testing.T) {
	client, err := NewPostHogClient(ClientConfig{})
	if err != nil {
		t.Fatalf("NewPostHogClient: %v", err)
	}
	client.Track("chat_turn", nil)
	if err := client.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
