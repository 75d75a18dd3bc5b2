package events

import (
	"math"
	"time"

	"tiquetera/internal/api"
)

// Event is an event as listed by /events/ and /events/{id}/.
type Event struct {
	ID          int          `json:"id"`
	Name        string       `json:"event_name"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	Start       string       `json:"start_datetime"`
	End         string       `json:"end_datetime"`
	Date        string       `json:"date"`
	City        string       `json:"city"`
	Department  string       `json:"department"`
	Country     string       `json:"country"`
	Category    string       `json:"category"`
	Image       string       `json:"image"`
	TicketTypes []TicketType `json:"types_of_tickets_available"`
}

// StartsAt returns the start time, falling back to the date field.
func (e Event) StartsAt() (time.Time, bool) {
	if t, ok := api.ParseTime(e.Start); ok {
		return t, true
	}
	return api.ParseTime(e.Date)
}

// EndsAt parses the first non-empty of end, start and date. A non-empty
// field that does not parse reports false; later fields are not tried.
func (e Event) EndsAt() (time.Time, bool) {
	for _, s := range []string{e.End, e.Start, e.Date} {
		if s == "" {
			continue
		}
		return api.ParseTime(s)
	}
	return time.Time{}, false
}

// HasEnded reports whether the event is over at now. Events without a
// usable date are treated as not ended.
func (e Event) HasEnded(now time.Time) bool {
	end, ok := e.EndsAt()
	return ok && end.Before(now)
}

// IsAvailable reports whether the event should be offered for sale.
func (e Event) IsAvailable(now time.Time) bool {
	return e.Status.AllowsPurchase() && !e.HasEnded(now)
}

// MinPrice returns the cheapest ticket price, or 0 without ticket types.
func (e Event) MinPrice() float64 {
	if len(e.TicketTypes) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, t := range e.TicketTypes {
		min = math.Min(min, t.Price.Float64())
	}
	return min
}

// Capacity sums the capacity of every listed ticket type.
func (e Event) Capacity() int {
	total := 0
	for _, t := range e.TicketTypes {
		total += t.MaximumCapacity
	}
	return total
}

// TicketTypeInfo names a ticket type.
type TicketTypeInfo struct {
	Name        string `json:"ticket_name"`
	Description string `json:"description"`
}

// TicketType is one purchasable ticket configuration of an event. The
// backend's spelling of maximun_capacity is kept on the wire.
type TicketType struct {
	ID              int            `json:"id"`
	Price           api.Decimal    `json:"price"`
	MaximumCapacity int            `json:"maximun_capacity"`
	CapacitySold    int            `json:"capacity_sold"`
	Info            TicketTypeInfo `json:"ticket_type"`
}

// Name returns the display name of the ticket type.
func (t TicketType) Name() string {
	if t.Info.Name != "" {
		return t.Info.Name
	}
	return "Ticket"
}

// Remaining returns how many tickets are still available.
func (t TicketType) Remaining() int {
	if r := t.MaximumCapacity - t.CapacitySold; r > 0 {
		return r
	}
	return 0
}

// SoldOut reports whether nothing is left.
func (t TicketType) SoldOut() bool {
	return t.Remaining() == 0
}
