package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strconv"
	"testing"
)

func TestCreateMessage_AssignsSequentialIDs(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	status, body := env.request(t, stdhttp.MethodPost, "/api/rooms/general/messages", token, CreateMessageRequest{Content: "hi"})
	if status != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var msg MessageResponse
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.ID != 1 {
		t.Errorf("expected first message id 1, got %d", msg.ID)
	}
	if msg.Content != "hi" {
		t.Errorf("expected content 'hi', got %q", msg.Content)
	}
	if msg.Username != "alice" {
		t.Errorf("expected username 'alice', got %q", msg.Username)
	}

	status, body = env.request(t, stdhttp.MethodPost, "/api/rooms/general/messages", token, CreateMessageRequest{Content: "again"})
	if status != stdhttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.ID != 2 {
		t.Errorf("expected second message id 2, got %d", msg.ID)
	}
}

func TestCreateMessage_EmptyContentRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	for _, content := range []string{"", "   ", "\n\t"} {
		status, body := env.request(t, stdhttp.MethodPost, "/api/rooms/general/messages", token, CreateMessageRequest{Content: content})
		if status != stdhttp.StatusBadRequest {
			t.Fatalf("content %q: expected 400, got %d", content, status)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if resp.Error != "empty" {
			t.Errorf("content %q: expected error 'empty', got %q", content, resp.Error)
		}
	}
}

func TestCreateMessage_MalformedBodyRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	status, body := env.request(t, stdhttp.MethodPost, "/api/rooms/general/messages", token, "not an object")
	if status != stdhttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", status, body)
	}
}

func TestCreateMessage_UnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	status, _ := env.request(t, stdhttp.MethodPost, "/api/rooms/no-such-room/messages", token, CreateMessageRequest{Content: "hi"})
	if status != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", status)
	}
}

func TestListMessages_AfterCursor(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	for _, content := range []string{"one", "two", "three"} {
		status, body := env.request(t, stdhttp.MethodPost, "/api/rooms/general/messages", token, CreateMessageRequest{Content: content})
		if status != stdhttp.StatusOK {
			t.Fatalf("seed %q: status %d: %s", content, status, body)
		}
	}

	all := env.fetchMessages(t, token, "general", "0")
	if len(all) != 3 {
		t.Fatalf("expected 3 messages after=0, got %d", len(all))
	}
	for i, want := range []string{"one", "two", "three"} {
		if all[i].Content != want {
			t.Errorf("message %d: expected %q, got %q", i, want, all[i].Content)
		}
		if i > 0 && all[i].ID <= all[i-1].ID {
			t.Errorf("ids not ascending: %d after %d", all[i].ID, all[i-1].ID)
		}
	}

	tail := env.fetchMessages(t, token, "general", strconv.FormatInt(all[0].ID, 10))
	if len(tail) != 2 {
		t.Fatalf("expected 2 messages after first id, got %d", len(tail))
	}
	if tail[0].Content != "two" || tail[1].Content != "three" {
		t.Errorf("unexpected tail contents: %+v", tail)
	}

	none := env.fetchMessages(t, token, "general", strconv.FormatInt(all[2].ID, 10))
	if len(none) != 0 {
		t.Errorf("expected empty page past last id, got %d messages", len(none))
	}
}

func TestListMessages_BadCursorFallsBackToZero(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	status, body := env.request(t, stdhttp.MethodPost, "/api/rooms/general/messages", token, CreateMessageRequest{Content: "hi"})
	if status != stdhttp.StatusOK {
		t.Fatalf("seed message: status %d: %s", status, body)
	}

	for _, cursor := range []string{"abc", "-5", ""} {
		messages := env.fetchMessages(t, token, "general", cursor)
		if len(messages) != 1 {
			t.Errorf("cursor %q: expected full page, got %d messages", cursor, len(messages))
		}
	}
}

func TestListMessages_UnknownRoom(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice")

	status, _ := env.request(t, stdhttp.MethodGet, "/api/rooms/no-such-room/messages", token, nil)
	if status != stdhttp.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", status)
	}
}
