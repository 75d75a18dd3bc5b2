package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"tiquetera/internal/api"
	"tiquetera/pkg/clock"
)

// Error definitions
var (
	ErrEventNotFound = errors.New("event not found")
)

// Backend is the part of api.Client the service needs.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...api.RequestOption) error
}

// Service reads events and their ticket types.
type Service interface {
	List(ctx context.Context) ([]Event, error)
	Browse(ctx context.Context, f Filter) ([]Event, error)
	Get(ctx context.Context, id int) (*Event, error)
	TicketTypes(ctx context.Context, eventID int) ([]TicketType, error)
}

type service struct {
	backend Backend
	clock   clock.Clock
}

// NewService creates an event service
func NewService(backend Backend, clk clock.Clock) Service {
	return &service{backend: backend, clock: clk}
}

func (s *service) List(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := s.backend.Get(ctx, "/events/", nil, &events); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// Browse lists events and applies f on the client.
func (s *service) Browse(ctx context.Context, f Filter) ([]Event, error) {
	events, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(events, s.clock.Now()), nil
}

func (s *service) Get(ctx context.Context, id int) (*Event, error) {
	var e Event
	if err := s.backend.Get(ctx, eventPath(id, ""), nil, &e); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrEventNotFound, id)
		}
		return nil, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return &e, nil
}

func (s *service) TicketTypes(ctx context.Context, eventID int) ([]TicketType, error) {
	var types []TicketType
	if err := s.backend.Get(ctx, eventPath(eventID, "types/"), nil, &types); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrEventNotFound, eventID)
		}
		return nil, fmt.Errorf("failed to get ticket types for event %d: %w", eventID, err)
	}
	return types, nil
}

func eventPath(id int, suffix string) string {
	return "/events/" + strconv.Itoa(id) + "/" + suffix
}
