package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"taskboard/domain"
)

type stubPresence map[string]domain.User

func (s stubPresence) Get(id string) (domain.User, bool) {
	u, ok := s[id]
	return u, ok
}

func attributionContext(header string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
	if header != "" {
		req.Header.Set(connectionIDHeader, header)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestResolveAttributionMissingHeader(t *testing.T) {
	got := resolveAttribution(attributionContext(""), stubPresence{})
	if got != domain.UnknownUser() {
		t.Fatalf("expected unknown user, got %+v", got)
	}
}

func TestResolveAttributionStaleConnection(t *testing.T) {
	got := resolveAttribution(attributionContext("gone"), stubPresence{})
	if got != domain.UnknownUser() {
		t.Fatalf("expected unknown user for stale id, got %+v", got)
	}
}

func TestResolveAttributionLiveConnection(t *testing.T) {
	presence := stubPresence{
		"conn-1": {ConnectionID: "conn-1", Username: "alice", Color: "#10b981"},
	}
	got := resolveAttribution(attributionContext("conn-1"), presence)
	if got.By != "alice" || got.Color != "#10b981" {
		t.Fatalf("unexpected attribution: %+v", got)
	}
}
