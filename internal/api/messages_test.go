package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/nerrad567/mqttdesk/internal/history"
)

func seedHistory(t *testing.T, env *testEnv, brokerID int64, n int) {
	t.Helper()
	for i := range n {
		e := &history.Entry{
			BrokerID:  brokerID,
			Direction: history.DirectionReceive,
			Topic:     fmt.Sprintf("t/%d", i),
			Payload:   []byte(fmt.Sprintf("%d", i)),
		}
		if err := env.history.Record(t.Context(), e); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}
}

func TestListMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createBroker(t, "local")
	seedHistory(t, env, id, 5)

	w := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/brokers/%d/messages?limit=2&offset=1", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Messages []struct {
			Topic         string `json:"topic"`
			Payload       string `json:"payload"`
			PayloadFormat string `json:"payload_format"`
		} `json:"messages"`
		Count int `json:"count"`
	}
	decode(t, w, &body)
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}
	// Newest first, skipping the newest.
	if body.Messages[0].Topic != "t/3" {
		t.Errorf("first topic = %q, want t/3", body.Messages[0].Topic)
	}
	if body.Messages[0].PayloadFormat != string(history.FormatJSON) {
		t.Errorf("payload_format = %q, want json", body.Messages[0].PayloadFormat)
	}
}

func TestListMessages_BadQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createBroker(t, "local")

	for _, q := range []string{"limit=abc", "offset=-1"} {
		w := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/brokers/%d/messages?%s", id, q), "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

func TestListMessages_UnknownBroker(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/brokers/77/messages", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestClearMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.createBroker(t, "local")
	seedHistory(t, env, id, 3)

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/brokers/%d/messages", id), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]int64
	decode(t, w, &body)
	if body["deleted"] != 3 {
		t.Errorf("deleted = %d, want 3", body["deleted"])
	}
}
