package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	raw := []byte(`{"type":"client_message","session_id":"s1","user_id":"u1","text":"hello","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	cm, ok := msg.(ClientMessage)
	if !ok {
		t.Fatalf("message type = %T, want ClientMessage", msg)
	}
	if cm.UserID != "u1" || cm.Text != "hello" {
		t.Fatalf("unexpected message: %+v", cm)
	}
}

func TestParseClientMessageRequiresUserAndText(t *testing.T) {
	if _, err := ParseClientMessage([]byte(`{"type":"client_message","user_id":"u1"}`)); err == nil {
		t.Fatal("expected error for missing text")
	}
	if _, err := ParseClientMessage([]byte(`{"type":"client_message","text":"hi"}`)); err == nil {
		t.Fatal("expected error for missing user_id")
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"end"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	ctrl, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if ctrl.Action != "end" {
		t.Fatalf("action = %q", ctrl.Action)
	}
}
