package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	want := Message{Type: TypeAttendanceCreated, Body: json.RawMessage(`{"id":1}`)}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-msgs:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Errorf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}

	cancel()
	select {
	case _, ok := <-msgs:
		if ok {
			t.Error("expected channel to close after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	if err := q.Publish(context.Background(), Message{Type: "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, Message{Type: "x"}); err == nil {
		t.Error("expected full queue to block until context expires")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("checkin|123"); err == nil {
		t.Error("expected error for non-JSON payload")
	}
	if _, err := Decode(`{"body":{}}`); err == nil {
		t.Error("expected error for missing type")
	}

	raw, err := Encode(Message{Type: TypeAttendanceCreated, Body: json.RawMessage(`{"status":"success"}`)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if msg.Type != TypeAttendanceCreated {
		t.Errorf("Type = %q", msg.Type)
	}
}
