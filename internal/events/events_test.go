package events

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"tiquetera/internal/api"
	"tiquetera/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

const eventsJSON = `[
  {"id": 1, "event_name": "Festival Vallenato", "description": "Música en vivo", "status": "activo",
   "start_datetime": "2025-10-30T18:00:00Z", "end_datetime": "2025-10-31T02:00:00Z",
   "city": "Valledupar", "department": "Cesar", "category": "Música",
   "types_of_tickets_available": [{"id": 10, "price": "80000.00", "maximun_capacity": 100}, {"id": 11, "price": "45000.00", "maximun_capacity": 300}]},
  {"id": 2, "event_name": "Feria de Cali", "description": "Salsa", "status": "activo",
   "start_datetime": "2025-08-01T18:00:00Z", "city": "Cali", "department": "Valle del Cauca", "category": "musica",
   "types_of_tickets_available": [{"id": 20, "price": "30000.00"}]},
  {"id": 3, "event_name": "Hackathon", "description": "Tecnología en Medellín", "status": "programado",
   "date": "2025-11-20", "city": "Medellín", "department": "Antioquia", "category": "Tecnología",
   "types_of_tickets_available": []},
  {"id": 4, "event_name": "Concierto cancelado", "status": "cancelado", "date": "2025-12-01", "city": "Bogotá"},
  {"id": 5, "event_name": "Sin fecha", "status": "activo", "city": "Neiva",
   "types_of_tickets_available": [{"id": 50, "price": 0}]}
]`

func decodeEvents(t *testing.T) []Event {
	t.Helper()
	var out []Event
	require.NoError(t, json.Unmarshal([]byte(eventsJSON), &out))
	return out
}

func ids(events []Event) []int {
	out := make([]int, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestEventDates(t *testing.T) {
	events := decodeEvents(t)

	assert.False(t, events[0].HasEnded(now))
	assert.True(t, events[1].HasEnded(now), "falls back to start when end is missing")
	assert.False(t, events[2].HasEnded(now))
	assert.False(t, events[4].HasEnded(now), "no date is never ended")

	start, ok := events[2].StartsAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), start)
}

func TestEndsAtUsesFirstNonEmptyField(t *testing.T) {
	_, ok := Event{End: "pronto", Start: "2025-11-20T18:00:00Z"}.EndsAt()
	assert.False(t, ok, "an unparseable end does not fall back to start")

	end, ok := Event{Start: "2025-11-20T18:00:00Z", Date: "2025-11-21"}.EndsAt()
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 20, 18, 0, 0, 0, time.UTC), end)
}

func TestEventPricesAndCapacity(t *testing.T) {
	events := decodeEvents(t)

	assert.Equal(t, 45000.0, events[0].MinPrice())
	assert.Equal(t, 400, events[0].Capacity())
	assert.Equal(t, 0.0, events[2].MinPrice())
	assert.Equal(t, 0.0, events[4].MinPrice())
}

func TestStatusPresentation(t *testing.T) {
	assert.Equal(t, "Próximamente", StatusScheduled.Label())
	assert.Equal(t, "#ef4444", StatusCancelled.Color())
	assert.Equal(t, "borrador", Status("borrador").Label())
	assert.False(t, Status("borrador").IsValid())
	assert.True(t, StatusActive.AllowsPurchase())
	assert.False(t, StatusFinished.AllowsPurchase())
}

func TestFilter(t *testing.T) {
	events := decodeEvents(t)

	tests := []struct {
		name   string
		filter Filter
		want   []int
	}{
		{"browse keeps active and not ended", BrowseFilter(), []int{1, 5}},
		{"no criteria", Filter{}, []int{1, 2, 3, 4, 5}},
		{"query matches description", Filter{Query: "MEDELLÍN"}, []int{3}},
		{"query matches department", Filter{Query: "cauca"}, []int{2}},
		{"city contains", Filter{City: "bog"}, []int{4}},
		{"department contains", Filter{Department: "antio"}, []int{3}},
		{"category equal fold", Filter{Category: "MUSICA"}, []int{2}},
		{"status", Filter{Status: StatusActive}, []int{1, 2, 5}},
		{"status todos", Filter{Status: "todos"}, []int{1, 2, 3, 4, 5}},
		{"min price on cheapest type", Filter{MinPrice: 40000}, []int{1}},
		{"max price on cheapest type", Filter{MaxPrice: 30000}, []int{2, 3, 4, 5}},
		{"date range", Filter{From: time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)}, []int{1, 3}},
		{"capacity", Filter{MinCapacity: 200}, []int{1}},
		{"browse plus city", Filter{OnlyAvailable: true, City: "valle"}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(events, now)))
		})
	}
}

func TestTicketTypeRemaining(t *testing.T) {
	tt := TicketType{MaximumCapacity: 10, CapacitySold: 8, Info: TicketTypeInfo{Name: "VIP"}}
	assert.Equal(t, 2, tt.Remaining())
	assert.False(t, tt.SoldOut())
	assert.Equal(t, "VIP", tt.Name())

	oversold := TicketType{MaximumCapacity: 5, CapacitySold: 7}
	assert.Equal(t, 0, oversold.Remaining())
	assert.True(t, oversold.SoldOut())
	assert.Equal(t, "Ticket", oversold.Name())
}

type stubBackend struct {
	responses map[string]string
	errs      map[string]error
}

func (s *stubBackend) Get(_ context.Context, path string, _ url.Values, out interface{}, _ ...api.RequestOption) error {
	if err, ok := s.errs[path]; ok {
		return err
	}
	return json.Unmarshal([]byte(s.responses[path]), out)
}

func TestServiceBrowseAndGet(t *testing.T) {
	b := &stubBackend{
		responses: map[string]string{
			"/events/":          eventsJSON,
			"/events/1/":        `{"id": 1, "event_name": "Festival Vallenato", "status": "activo"}`,
			"/events/1/types/": `[{"id": 10, "price": "80000.00", "maximun_capacity": 10, "capacity_sold": 8, "ticket_type": {"ticket_name": "Palco"}}]`,
		},
		errs: map[string]error{
			"/events/9/":       &api.StatusError{Status: 404},
			"/events/9/types/": &api.StatusError{Status: 404},
		},
	}
	svc := NewService(b, clock.Fake(now))
	ctx := context.Background()

	listed, err := svc.Browse(ctx, BrowseFilter())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5}, ids(listed))

	ev, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Festival Vallenato", ev.Name)

	types, err := svc.TicketTypes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, 2, types[0].Remaining())
	assert.Equal(t, "Palco", types[0].Name())

	_, err = svc.Get(ctx, 9)
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, err = svc.TicketTypes(ctx, 9)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestServiceListFailure(t *testing.T) {
	b := &stubBackend{errs: map[string]error{"/events/": &api.NetworkError{Err: context.DeadlineExceeded}}}
	_, err := NewService(b, clock.Fake(now)).Browse(context.Background(), BrowseFilter())
	assert.ErrorIs(t, err, api.ErrNetwork)
}
