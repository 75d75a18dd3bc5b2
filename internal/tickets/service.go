package tickets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"tiquetera/internal/api"
	"tiquetera/pkg/logger"
)

// Error definitions
var (
	ErrNoTickets     = errors.New("no tickets for this event yet")
	ErrQRUnavailable = errors.New("ticket QR is not available")
	ErrTicketMissing = errors.New("ticket not found")
)

// Backend is the part of api.Client the service needs.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...api.RequestOption) error
}

// Service reads the user's tickets.
type Service interface {
	MyEvents(ctx context.Context) ([]MyEvent, error)
	EventTickets(ctx context.Context, eventID int) (MyEvent, error)
	SaveQR(ctx context.Context, eventID, ticketID int, dir string) (string, error)
}

type service struct {
	backend Backend
	log     *logger.Logger
}

// NewService creates a ticket service
func NewService(backend Backend, log *logger.Logger) Service {
	return &service{backend: backend, log: log}
}

func (s *service) MyEvents(ctx context.Context) ([]MyEvent, error) {
	var events []MyEvent
	if err := s.backend.Get(ctx, "/events/my/", nil, &events); err != nil {
		return nil, fmt.Errorf("failed to load my events: %w", err)
	}
	return events, nil
}

// EventTickets returns the user's tickets for one event. ErrNoTickets is
// informational, not a failure of the request.
func (s *service) EventTickets(ctx context.Context, eventID int) (MyEvent, error) {
	events, err := s.MyEvents(ctx)
	if err != nil {
		return MyEvent{}, err
	}
	ev, ok := FindEvent(events, eventID)
	if !ok || len(ev.Tickets) == 0 {
		return ev, ErrNoTickets
	}
	return ev, nil
}

// SaveQR writes a ticket's QR as a PNG in dir and returns the path. It is
// refused unless the ticket's status allows downloading.
func (s *service) SaveQR(ctx context.Context, eventID, ticketID int, dir string) (string, error) {
	ev, err := s.EventTickets(ctx, eventID)
	if err != nil {
		return "", err
	}

	for _, t := range ev.Tickets {
		if t.ID != ticketID {
			continue
		}
		info := Describe(string(t.Status))
		if !info.CanDownload {
			return "", fmt.Errorf("%w: %s", ErrQRUnavailable, info.Message)
		}
		png, err := DecodeQR(t.QRBase64)
		if err != nil || len(png) == 0 {
			return "", fmt.Errorf("%w: missing image", ErrQRUnavailable)
		}

		path := filepath.Join(dir, qrFileName(t))
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return "", fmt.Errorf("failed to write qr: %w", err)
		}
		s.log.InfoWithContext(ctx, "Ticket QR Saved", map[string]interface{}{
			"ticket_id": t.ID,
			"path":      path,
		})
		return path, nil
	}
	return "", ErrTicketMissing
}

// qrFileName names the PNG after the ticket code. The code comes from the
// backend, so only letters, digits, '-' and '_' are kept.
func qrFileName(t Ticket) string {
	code := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, t.UniqueCode)
	if code == "" {
		return fmt.Sprintf("ticket-%d.png", t.ID)
	}
	return "ticket-" + code + ".png"
}
