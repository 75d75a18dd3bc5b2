package tickets

import (
	"time"

	"tiquetera/internal/api"
)

// Ticket is one purchased or pending admission as reported by /events/my/.
type Ticket struct {
	ID           int         `json:"ticket_id"`
	Type         string      `json:"type"`
	Amount       int         `json:"amount"`
	Status       Status      `json:"status"`
	UniqueCode   string      `json:"unique_code"`
	QRBase64     string      `json:"qr_base64,omitempty"`
	PurchaseDate string      `json:"date_of_purchase"`
	PricePaid    api.Decimal `json:"price_paid"`
}

// PurchasedAt parses the purchase timestamp.
func (t Ticket) PurchasedAt() (time.Time, bool) {
	return api.ParseTime(t.PurchaseDate)
}

// MyEvent groups the user's tickets for one event.
type MyEvent struct {
	Event   string   `json:"event"`
	EventID int      `json:"event_id"`
	Date    string   `json:"date"`
	City    string   `json:"city"`
	Country string   `json:"country"`
	Status  string   `json:"status"`
	Tickets []Ticket `json:"tickets"`
}

// StartsAt returns the parsed event date.
func (e MyEvent) StartsAt() (time.Time, bool) {
	return api.ParseTime(e.Date)
}

// Summary counts tickets by state.
type Summary struct {
	Tickets   int
	Admission int
	Active    int
	Pending   int
	Used      int
	Cancelled int
	Unknown   int
}

// Summarize counts tickets. Admission sums the amount of every ticket.
func Summarize(tickets []Ticket) Summary {
	var s Summary
	for _, t := range tickets {
		s.Tickets++
		s.Admission += t.Amount
		switch t.Status {
		case StatusPurchased:
			s.Active++
		case StatusPendingPayment:
			s.Pending++
		case StatusUsed:
			s.Used++
		case StatusCancelled:
			s.Cancelled++
		default:
			s.Unknown++
		}
	}
	return s
}

// Settled reports whether no ticket is still waiting for payment.
func Settled(tickets []Ticket) bool {
	for _, t := range tickets {
		if t.Status == StatusPendingPayment {
			return false
		}
	}
	return true
}

// FindEvent returns the entry for eventID.
func FindEvent(events []MyEvent, eventID int) (MyEvent, bool) {
	for _, e := range events {
		if e.EventID == eventID {
			return e, true
		}
	}
	return MyEvent{}, false
}

// SplitUpcoming separates events that have not happened yet from past
// ones. Events with an unparseable date count as upcoming.
func SplitUpcoming(events []MyEvent, now time.Time) (upcoming, past []MyEvent) {
	for _, e := range events {
		at, ok := e.StartsAt()
		if ok && at.Before(now) {
			past = append(past, e)
			continue
		}
		upcoming = append(upcoming, e)
	}
	return upcoming, past
}
