// Package api exposes group availability over HTTP.
package api

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"booked/internal/availability"
	"booked/internal/models"
	"booked/internal/store"
)

// Server wires the HTTP routes to the document store and the availability
// core.
type Server struct {
	app    *fiber.App
	logger *slog.Logger
	store  store.DocumentStore
}

// New builds the server and registers all routes.
func New(logger *slog.Logger, st store.DocumentStore) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		logger: logger,
		store:  st,
	}

	s.app.Get("/health", s.handleHealth)
	s.app.Get("/groups/:id", s.handleGetGroup)
	s.app.Get("/groups/:id/messages", s.handleListMessages)
	s.app.Post("/groups/:id/messages", s.handlePostMessage)
	s.app.Get("/groups/:id/free", s.handleFreeWindows)

	return s
}

// App returns the underlying fiber app, used by tests via app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	s.logger.Info("API server listening.", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleGetGroup(c *fiber.Ctx) error {
	group, err := s.store.GetGroup(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(group)
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	groupID := c.Params("id")
	if _, err := s.store.GetGroup(c.Context(), groupID); err != nil {
		return s.fail(c, err)
	}
	msgs, err := s.store.ListMessages(c.Context(), groupID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(msgs)
}

func (s *Server) handlePostMessage(c *fiber.Ctx) error {
	groupID := c.Params("id")
	if _, err := s.store.GetGroup(c.Context(), groupID); err != nil {
		return s.fail(c, err)
	}

	var in struct {
		Sender string `json:"sender"`
		Body   string `json:"body"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	if in.Sender == "" || in.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sender and body are required"})
	}

	msg := models.Message{
		ID:      uuid.NewString(),
		GroupID: groupID,
		Sender:  in.Sender,
		Body:    in.Body,
		SentAt:  time.Now().UTC(),
	}
	if err := s.store.AppendMessage(c.Context(), msg); err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// handleFreeWindows answers "when is everyone free" for a group. The
// members query param narrows the subset; omitted means every member.
func (s *Server) handleFreeWindows(c *fiber.Ctx) error {
	group, err := s.store.GetGroup(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}

	rng, err := parseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	members := group.Members
	if raw := c.Query("members"); raw != "" {
		members = nil
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, m)
			}
		}
	}

	memberEvents := make(map[string][]models.Event, len(members))
	for _, member := range members {
		events, err := s.store.GetUserEvents(c.Context(), member)
		if err != nil {
			return s.fail(c, err)
		}
		memberEvents[member] = events
	}

	ga := availability.BuildGroupAvailability(group.ID, memberEvents)
	windows := availability.FreeWindows(ga, members, rng)
	if windows == nil {
		windows = []models.OverlapWindow{}
	}
	return c.JSON(windows)
}

func parseRange(startRaw, endRaw string) (models.Interval, error) {
	if startRaw == "" || endRaw == "" {
		return models.Interval{}, errors.New("start and end query params are required")
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return models.Interval{}, errors.New("start must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return models.Interval{}, errors.New("end must be RFC3339")
	}
	if !end.After(start) {
		return models.Interval{}, errors.New("end must be after start")
	}
	return models.Interval{Start: start, End: end}, nil
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, models.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "permission denied"})
	case errors.Is(err, models.ErrSourceUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "backend unavailable"})
	default:
		s.logger.Error("Request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
