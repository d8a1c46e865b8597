// Package caldav implements the calendar provider contract on top of any
// CalDAV server (iCloud, Fastmail, Radicale, ...).
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"booked/internal/models"
)

// maxOccurrences caps recurrence expansion per event so a malformed RRULE
// cannot blow up a sync cycle.
const maxOccurrences = 1000

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "booked/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads calendars and events from a CalDAV endpoint. It implements
// calendar.Provider.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	endpoint     string
}

// NewClient creates a CalDAV client against the given endpoint with
// basic-auth credentials.
func NewClient(logger *slog.Logger, endpoint, username, password string) (*Client, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &Client{
		caldavClient: caldavClient,
		logger:       logger,
		endpoint:     endpoint,
	}, nil
}

// ListCalendars discovers the user's calendars via the principal and
// calendar-home-set lookups.
func (c *Client) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, classify("find principal path", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, classify("find calendar home set", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, classify("find calendars", err)
	}

	var out []models.Calendar
	for _, cal := range calendars {
		out = append(out, models.Calendar{ID: cal.Path, Name: cal.Name})
	}
	c.logger.Debug("Listed CalDAV calendars", "count", len(out))
	return out, nil
}

// ListEvents queries each calendar for VEVENTs intersecting [start, end)
// and converts them to raw records, expanding recurrences locally (CalDAV
// servers are not required to expand them for us).
func (c *Client) ListEvents(ctx context.Context, calendarIDs []string, start, end time.Time) ([]models.RawEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start,
				End:   end,
			}},
		},
	}

	var raw []models.RawEvent
	for _, calPath := range calendarIDs {
		objects, err := c.caldavClient.QueryCalendar(ctx, calPath, query)
		if err != nil {
			return nil, classify(fmt.Sprintf("query calendar %s", calPath), err)
		}

		count := 0
		for _, obj := range objects {
			if obj.Data == nil {
				continue
			}
			for _, comp := range obj.Data.Children {
				if comp.Name != ical.CompEvent {
					continue
				}
				events := expandComponent(comp, start, end)
				raw = append(raw, events...)
				count += len(events)
			}
		}
		c.logger.Info("Fetched events from CalDAV calendar", "calendar", calPath, "count", count)
	}
	return raw, nil
}

// classify maps webdav failures onto the error taxonomy.
func classify(op string, err error) error {
	switch statusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %v: %w", op, err, models.ErrPermissionDenied)
	}
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrSourceUnavailable)
}

// statusCode extracts the HTTP status from a go-webdav client error. The
// library does not export its error type; failed requests surface as
// messages of the form "403 Forbidden: ...".
func statusCode(err error) int {
	if err == nil {
		return 0
	}
	msg := err.Error()
	if len(msg) < 3 {
		return 0
	}
	code, convErr := strconv.Atoi(msg[:3])
	if convErr != nil || code < 100 || code > 599 {
		return 0
	}
	return code
}
