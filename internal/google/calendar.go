package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"booked/internal/models"
)

const credentialsFile = "credentials.json"

// Client reads calendars and events from the Google Calendar API. It
// implements calendar.Provider.
type Client struct {
	service *calendar.Service
	logger  *slog.Logger
}

// NewClient builds an authenticated Google Calendar client for the given
// account. Tokens are stored per account in token-<account>.json; run the
// auth command first to create one.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string) (*Client, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	tokenFile := fmt.Sprintf("token-%s.json", accountName)
	token, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	httpClient := config.Client(ctx, token)
	service, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service, logger: logger}, nil
}

// ListCalendars returns all calendars visible to the authenticated account.
func (c *Client) ListCalendars(ctx context.Context) ([]models.Calendar, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, classify("list calendars", err)
	}

	var calendars []models.Calendar
	for _, item := range list.Items {
		calendars = append(calendars, models.Calendar{ID: item.Id, Name: item.Summary})
	}
	c.logger.Debug("Listed Google calendars", "count", len(calendars))
	return calendars, nil
}

// ListEvents fetches events from the given calendars within [start, end).
// Recurring events arrive pre-expanded (SingleEvents).
func (c *Client) ListEvents(ctx context.Context, calendarIDs []string, start, end time.Time) ([]models.RawEvent, error) {
	var raw []models.RawEvent
	for _, calID := range calendarIDs {
		events, err := c.service.Events.List(calID).
			Context(ctx).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(start.UTC().Format(time.RFC3339)).
			TimeMax(end.UTC().Format(time.RFC3339)).
			OrderBy("startTime").
			Do()
		if err != nil {
			return nil, classify(fmt.Sprintf("list events for calendar %s", calID), err)
		}
		c.logger.Info("Fetched events from Google Calendar", "count", len(events.Items), "calendarID", calID)
		raw = append(raw, toRawEvents(events.Items)...)
	}
	return raw, nil
}

// toRawEvents converts Google Calendar events to raw records for the
// normalizer. All-day events carry a date instead of a datetime.
func toRawEvents(items []*calendar.Event) []models.RawEvent {
	var out []models.RawEvent
	for _, item := range items {
		r := models.RawEvent{
			ID:    item.Id,
			Title: item.Summary,
			Notes: item.Description,
			Free:  item.Transparency == "transparent",
		}

		if t, allDay, ok := parseEventTime(item.Start); ok {
			r.Start = &t
			r.AllDay = allDay
		}
		if t, isDate, ok := parseEventTime(item.End); ok {
			// Google reports all-day ends as an exclusive date; shift it
			// back so the span covers the right last day.
			if isDate && r.Start != nil && t.After(*r.Start) {
				t = t.AddDate(0, 0, -1)
			}
			r.End = &t
		}

		for _, a := range item.Attendees {
			r.Participants = append(r.Participants, a.Email)
		}
		out = append(out, r)
	}
	return out
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool, bool) {
	if edt == nil {
		return time.Time{}, false, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, false, true
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, time.Local)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, true, true
	}
	return time.Time{}, false, false
}

// classify maps Google API failures onto the error taxonomy: auth problems
// are permission errors, everything else means the source is unreachable.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %v: %w", op, err, models.ErrPermissionDenied)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrSourceUnavailable)
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config
// for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarReadonlyScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb is called by the auth flow to retrieve a token.
func TokenFromWeb(config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(context.Background(), authCode)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// GetTokenAccounts lists the account names with a saved token file.
func GetTokenAccounts() ([]string, error) {
	files, err := os.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var accounts []string
	for _, file := range files {
		if strings.HasPrefix(file.Name(), "token-") && strings.HasSuffix(file.Name(), ".json") {
			accountName := strings.TrimSuffix(strings.TrimPrefix(file.Name(), "token-"), ".json")
			accounts = append(accounts, accountName)
		}
	}
	return accounts, nil
}
