package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/teamtask/server/internal/module/user"
)

type fakeCreds struct {
	mu    sync.Mutex
	creds map[uuid.UUID]user.CalendarCredential
	saves int
}

func newFakeCreds() *fakeCreds {
	return &fakeCreds{creds: make(map[uuid.UUID]user.CalendarCredential)}
}

func (f *fakeCreds) CalendarCredential(_ context.Context, userID uuid.UUID) (*user.CalendarCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred := f.creds[userID]
	return &cred, nil
}

func (f *fakeCreds) SaveCalendarCredential(_ context.Context, userID uuid.UUID, cred user.CalendarCredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cred.RefreshToken == "" {
		cred.RefreshToken = f.creds[userID].RefreshToken
	}
	f.creds[userID] = cred
	f.saves++
	return nil
}

func (f *fakeCreds) get(userID uuid.UUID) user.CalendarCredential {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds[userID]
}

type fakeEvents struct {
	mu        sync.Mutex
	calls     int
	inserted  []*calendarapi.Event
	updated   map[string]*calendarapi.Event
	deleted   []string
	err       error
	deleteErr error
	calendars []string
}

func (f *fakeEvents) Insert(_ context.Context, calendarID string, ev *calendarapi.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.calendars = append(f.calendars, calendarID)
	if f.err != nil {
		return "", f.err
	}
	f.inserted = append(f.inserted, ev)
	return "evt-" + ev.Summary, nil
}

func (f *fakeEvents) Update(_ context.Context, calendarID, eventID string, ev *calendarapi.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.calendars = append(f.calendars, calendarID)
	if f.err != nil {
		return f.err
	}
	if f.updated == nil {
		f.updated = make(map[string]*calendarapi.Event)
	}
	f.updated[eventID] = ev
	return nil
}

func (f *fakeEvents) Delete(_ context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.calendars = append(f.calendars, calendarID)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

// factory returns an APIFactory that forces a token fetch, like a real request would.
func (f *fakeEvents) factory() APIFactory {
	return func(_ context.Context, ts oauth2.TokenSource) (EventsAPI, error) {
		if _, err := ts.Token(); err != nil {
			return nil, err
		}
		return f, nil
	}
}

// newTokenServer serves a fixed token response for both code exchange and refresh.
func newTokenServer(t *testing.T, accessToken, refreshToken string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		body := map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if refreshToken != "" {
			body["refresh_token"] = refreshToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, hits
}

func testOAuthConfig(srv *httptest.Server) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/v1/calendar/callback",
		Scopes:       []string{calendarapi.CalendarScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
	}
}
