package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/teamtask/server/internal/module/user"
)

func setupClient(t *testing.T, opts Options) (*GoogleClient, *fakeCreds, *fakeEvents) {
	t.Helper()
	srv, _ := newTokenServer(t, "refreshed-access", "")
	creds := newFakeCreds()
	events := &fakeEvents{}
	client := NewGoogleClient(testOAuthConfig(srv), creds, events.factory(), opts, nil, zap.NewNop())
	return client, creds, events
}

func connectedUser(creds *fakeCreds) uuid.UUID {
	id := uuid.New()
	expiry := time.Now().Add(time.Hour)
	creds.creds[id] = user.CalendarCredential{AccessToken: "access", RefreshToken: "refresh", Expiry: &expiry}
	return id
}

func testSchedule(title string) *Schedule {
	return &Schedule{Title: title, DueDate: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func TestGoogleClient_CreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("no credential", func(t *testing.T) {
		client, _, events := setupClient(t, Options{TimeZone: "UTC"})

		_, err := client.CreateEvent(ctx, uuid.New(), testSchedule("standup"))
		assert.ErrorIs(t, err, ErrNoCredential)
		assert.Zero(t, events.calls)
	})

	t.Run("returns event id on primary calendar", func(t *testing.T) {
		client, creds, events := setupClient(t, Options{TimeZone: "UTC"})
		userID := connectedUser(creds)

		id, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
		require.NoError(t, err)
		assert.Equal(t, "evt-standup", id)
		assert.Equal(t, []string{"primary"}, events.calendars)
		require.Len(t, events.inserted, 1)
		assert.Equal(t, "standup", events.inserted[0].Summary)
	})

	t.Run("configured calendar id", func(t *testing.T) {
		client, creds, events := setupClient(t, Options{TimeZone: "UTC", CalendarID: "team@group.calendar.google.com"})
		userID := connectedUser(creds)

		_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
		require.NoError(t, err)
		assert.Equal(t, []string{"team@group.calendar.google.com"}, events.calendars)
	})

	t.Run("service failure", func(t *testing.T) {
		client, creds, events := setupClient(t, Options{TimeZone: "UTC"})
		userID := connectedUser(creds)
		events.err = errors.New("boom")

		_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
		assert.ErrorIs(t, err, ErrCalendarUnavailable)
	})
}

func TestGoogleClient_UpdateEvent(t *testing.T) {
	ctx := context.Background()
	client, creds, events := setupClient(t, Options{TimeZone: "UTC"})
	userID := connectedUser(creds)

	require.NoError(t, client.UpdateEvent(ctx, userID, "evt-1", testSchedule("renamed")))
	require.Contains(t, events.updated, "evt-1")
	assert.Equal(t, "renamed", events.updated["evt-1"].Summary)

	err := client.UpdateEvent(ctx, uuid.New(), "evt-1", testSchedule("renamed"))
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestGoogleClient_DeleteEvent(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"deleted", nil, nil},
		{"not found counts as deleted", &googleapi.Error{Code: http.StatusNotFound}, nil},
		{"gone counts as deleted", &googleapi.Error{Code: http.StatusGone}, nil},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, ErrCalendarUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, creds, events := setupClient(t, Options{TimeZone: "UTC"})
			userID := connectedUser(creds)
			events.deleteErr = tt.err

			err := client.DeleteEvent(ctx, userID, "evt-1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGoogleClient_CircuitBreaker(t *testing.T) {
	ctx := context.Background()
	client, creds, events := setupClient(t, Options{TimeZone: "UTC", FailureLimit: 2, CircuitTimeout: time.Minute})
	userID := connectedUser(creds)
	events.err = errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
		require.ErrorIs(t, err, ErrCalendarUnavailable)
	}

	_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
	assert.ErrorIs(t, err, ErrCalendarUnavailable)
	assert.Equal(t, 2, events.calls, "open breaker must not reach the API")
}

func TestGoogleClient_CircuitBreakerIgnoresUserErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, 4},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, 4},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, 4},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, 2},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, 2},
		{"unavailable", &googleapi.Error{Code: http.StatusServiceUnavailable}, 2},
		{"transport error", errors.New("connection reset"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client, creds, events := setupClient(t, Options{TimeZone: "UTC", FailureLimit: 2, CircuitTimeout: time.Minute})
			userID := connectedUser(creds)
			events.err = tt.err

			for i := 0; i < 4; i++ {
				_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
				require.ErrorIs(t, err, ErrCalendarUnavailable)
			}
			assert.Equal(t, tt.wantCalls, events.calls)
		})
	}
}

func TestCountsAsOutage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, false},
		{"wrapped forbidden", fmt.Errorf("insert: %w", &googleapi.Error{Code: http.StatusForbidden}), false},
		{"gone", &googleapi.Error{Code: http.StatusGone}, false},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"bad gateway", &googleapi.Error{Code: http.StatusBadGateway}, true},
		{"revoked grant", &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadRequest}}, false},
		{"token endpoint down", &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}}, true},
		{"plain", errors.New("timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countsAsOutage(tt.err))
		})
	}
}

func TestGoogleClient_PersistsRefreshedToken(t *testing.T) {
	ctx := context.Background()
	srv, hits := newTokenServer(t, "refreshed-access", "")
	creds := newFakeCreds()
	events := &fakeEvents{}
	client := NewGoogleClient(testOAuthConfig(srv), creds, events.factory(), Options{TimeZone: "UTC"}, nil, zap.NewNop())

	userID := uuid.New()
	expired := time.Now().Add(-time.Hour)
	creds.creds[userID] = user.CalendarCredential{AccessToken: "stale", RefreshToken: "refresh", Expiry: &expired}

	_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	saved := creds.get(userID)
	assert.Equal(t, "refreshed-access", saved.AccessToken)
	assert.Equal(t, "refresh", saved.RefreshToken)
	require.NotNil(t, saved.Expiry)
	assert.True(t, saved.Expiry.After(time.Now()))
}

func TestGoogleClient_ValidTokenNotSaved(t *testing.T) {
	ctx := context.Background()
	client, creds, _ := setupClient(t, Options{TimeZone: "UTC"})
	userID := connectedUser(creds)

	_, err := client.CreateEvent(ctx, userID, testSchedule("standup"))
	require.NoError(t, err)
	assert.Zero(t, creds.saves)
}

func TestIsGone(t *testing.T) {
	assert.True(t, IsGone(&googleapi.Error{Code: http.StatusNotFound}))
	assert.True(t, IsGone(&googleapi.Error{Code: http.StatusGone}))
	assert.False(t, IsGone(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, IsGone(errors.New("plain")))
}
