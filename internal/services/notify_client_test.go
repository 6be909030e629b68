package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spark-fund/backend/internal/events"
	"go.uber.org/zap"
)

func TestNotifyClient_Send(t *testing.T) {
	var got events.Event
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("X-Event-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewNotifyClient(srv.URL, zap.NewNop())
	if !c.Enabled() {
		t.Fatal("client with url should be enabled")
	}
	err := c.Send(context.Background(), events.Event{
		Type:    events.EventCampaignEnded,
		Payload: map[string]any{"campaign_id": "abc"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotType != events.EventCampaignEnded || got.Type != events.EventCampaignEnded {
		t.Errorf("type header = %q, body type = %q", gotType, got.Type)
	}
	if got.Payload["campaign_id"] != "abc" {
		t.Errorf("payload = %v", got.Payload)
	}
}

func TestNotifyClient_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewNotifyClient(srv.URL, zap.NewNop())
	if err := c.Send(context.Background(), events.Event{Type: "x"}); err == nil {
		t.Fatal("expected error for 502")
	}
	if NewNotifyClient("  ", zap.NewNop()).Enabled() {
		t.Fatal("blank url should disable the client")
	}
}
