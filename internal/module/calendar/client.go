package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teamtask/server/internal/module/user"
	"github.com/teamtask/server/internal/shared/config"
	apperrors "github.com/teamtask/server/internal/shared/errors"
	"github.com/teamtask/server/internal/utils/metrics"
	"github.com/teamtask/server/internal/utils/requestctx"
)

// Client mirrors schedules into a user's calendar.
type Client interface {
	CreateEvent(ctx context.Context, userID uuid.UUID, s *Schedule) (string, error)
	UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, s *Schedule) error
	DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) error
}

// CredentialStore loads and persists calendar credentials.
type CredentialStore interface {
	CalendarCredential(ctx context.Context, userID uuid.UUID) (*user.CalendarCredential, error)
	SaveCalendarCredential(ctx context.Context, userID uuid.UUID, cred user.CalendarCredential) error
}

// EventsAPI is the subset of the Calendar events service in use.
type EventsAPI interface {
	Insert(ctx context.Context, calendarID string, ev *calendarapi.Event) (string, error)
	Update(ctx context.Context, calendarID, eventID string, ev *calendarapi.Event) error
	Delete(ctx context.Context, calendarID, eventID string) error
}

// APIFactory builds an EventsAPI authorized by ts.
type APIFactory func(ctx context.Context, ts oauth2.TokenSource) (EventsAPI, error)

// NewOAuthConfig returns the OAuth client for calendar access.
func NewOAuthConfig(cfg *config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{calendarapi.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// NewGoogleAPI is the APIFactory for the Google Calendar service.
func NewGoogleAPI(ctx context.Context, ts oauth2.TokenSource) (EventsAPI, error) {
	svc, err := calendarapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &googleEvents{events: svc.Events}, nil
}

type googleEvents struct {
	events *calendarapi.EventsService
}

func (g *googleEvents) Insert(ctx context.Context, calendarID string, ev *calendarapi.Event) (string, error) {
	created, err := g.events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

func (g *googleEvents) Update(ctx context.Context, calendarID, eventID string, ev *calendarapi.Event) error {
	_, err := g.events.Update(calendarID, eventID, ev).Context(ctx).Do()
	return err
}

func (g *googleEvents) Delete(ctx context.Context, calendarID, eventID string) error {
	return g.events.Delete(calendarID, eventID).Context(ctx).Do()
}

// Options configures a GoogleClient.
type Options struct {
	CalendarID     string
	TimeZone       string
	FailureLimit   uint32
	CircuitTimeout time.Duration
}

// OptionsFromConfig derives client options from configuration.
func OptionsFromConfig(cfg *config.GoogleConfig) Options {
	return Options{
		CalendarID:     cfg.CalendarID,
		TimeZone:       cfg.TimeZone,
		FailureLimit:   cfg.FailureLimit,
		CircuitTimeout: cfg.CircuitTimeout,
	}
}

// GoogleClient is a Client backed by Google Calendar.
// Calls share one circuit breaker so a Google outage stops hammering the API.
type GoogleClient struct {
	oauth      *oauth2.Config
	creds      CredentialStore
	newAPI     APIFactory
	breaker    *gobreaker.CircuitBreaker[any]
	calendarID string
	timeZone   string
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewGoogleClient creates a calendar client.
func NewGoogleClient(
	oauthCfg *oauth2.Config,
	creds CredentialStore,
	newAPI APIFactory,
	opts Options,
	m *metrics.Metrics,
	logger *zap.Logger,
) *GoogleClient {
	if opts.CalendarID == "" {
		opts.CalendarID = "primary"
	}
	if opts.FailureLimit == 0 {
		opts.FailureLimit = 5
	}
	if opts.CircuitTimeout <= 0 {
		opts.CircuitTimeout = 30 * time.Second
	}
	limit := opts.FailureLimit

	settings := gobreaker.Settings{
		Name:        "google-calendar",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     opts.CircuitTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= limit
		},
		IsSuccessful: func(err error) bool {
			return !countsAsOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &GoogleClient{
		oauth:      oauthCfg,
		creds:      creds,
		newAPI:     newAPI,
		breaker:    gobreaker.NewCircuitBreaker[any](settings),
		calendarID: opts.CalendarID,
		timeZone:   opts.TimeZone,
		metrics:    m,
		logger:     logger,
	}
}

// CreateEvent creates an event and returns its id.
func (c *GoogleClient) CreateEvent(ctx context.Context, userID uuid.UUID, s *Schedule) (string, error) {
	var eventID string
	err := c.execute(ctx, "create", userID, func(api EventsAPI) error {
		id, err := api.Insert(ctx, c.calendarID, BuildEvent(s, c.timeZone))
		eventID = id
		return err
	})
	return eventID, err
}

// UpdateEvent replaces an event with the current schedule.
func (c *GoogleClient) UpdateEvent(ctx context.Context, userID uuid.UUID, eventID string, s *Schedule) error {
	return c.execute(ctx, "update", userID, func(api EventsAPI) error {
		return api.Update(ctx, c.calendarID, eventID, BuildEvent(s, c.timeZone))
	})
}

// DeleteEvent deletes an event. An event that is already gone counts as deleted.
func (c *GoogleClient) DeleteEvent(ctx context.Context, userID uuid.UUID, eventID string) error {
	return c.execute(ctx, "delete", userID, func(api EventsAPI) error {
		if err := api.Delete(ctx, c.calendarID, eventID); err != nil && !IsGone(err) {
			return err
		}
		return nil
	})
}

func (c *GoogleClient) execute(ctx context.Context, op string, userID uuid.UUID, fn func(EventsAPI) error) error {
	start := time.Now()

	api, err := c.api(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoCredential) {
			c.metrics.RecordCalendarSync(op, "skipped", 0)
		} else {
			c.metrics.RecordCalendarSync(op, "error", 0)
		}
		return err
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, fn(api)
	})

	switch {
	case err == nil:
		c.metrics.RecordCalendarSync(op, "success", time.Since(start))
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.RecordCalendarSync(op, "circuit_open", 0)
		return apperrors.Wrap(ErrCalendarUnavailable, err)
	default:
		c.metrics.RecordCalendarSync(op, "error", time.Since(start))
		c.report(ctx, op, userID, err)
		return apperrors.Wrap(ErrCalendarUnavailable, err)
	}
}

// api builds an authorized API for userID from the stored credential.
func (c *GoogleClient) api(ctx context.Context, userID uuid.UUID) (EventsAPI, error) {
	cred, err := c.creds.CalendarCredential(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !cred.Connected() {
		return nil, ErrNoCredential
	}

	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		TokenType:    "Bearer",
	}
	if cred.Expiry != nil {
		token.Expiry = *cred.Expiry
	}

	ts := &persistingTokenSource{
		base:   c.oauth.TokenSource(ctx, token),
		last:   token.AccessToken,
		userID: userID,
		creds:  c.creds,
		logger: c.logger,
	}
	return c.newAPI(ctx, ts)
}

func (c *GoogleClient) report(ctx context.Context, op string, userID uuid.UUID, err error) {
	requestID := requestctx.RequestID(ctx)
	c.logger.Warn("calendar request failed",
		zap.String("op", op),
		zap.String("user_id", userID.String()),
		zap.String("request_id", requestID),
		zap.Error(err),
	)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("calendar_op", op)
		if requestID != "" {
			scope.SetTag("request_id", requestID)
		}
		scope.SetUser(sentry.User{ID: userID.String()})
		sentry.CaptureException(err)
	})
}

// countsAsOutage reports whether err says Google itself is failing. Rejections
// of one user's request, such as a revoked grant or a missing event, do not
// count; rate limiting does.
func countsAsOutage(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusTooManyRequests
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return retrieveErr.Response.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// IsGone reports whether err is a Calendar API "not found" or "gone" response.
func IsGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
