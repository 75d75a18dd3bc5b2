package events

import (
	"strings"
	"time"
)

// Filter narrows an event list. Zero values disable a criterion.
type Filter struct {
	// Query matches name, description, city and department.
	Query      string
	City       string
	Department string
	// Category must match exactly, ignoring case.
	Category string
	// Status restricts to one status. Empty or "todos" accepts any.
	Status Status
	// OnlyAvailable keeps active events that have not ended.
	OnlyAvailable bool
	From          time.Time
	To            time.Time
	// MinPrice and MaxPrice apply to the cheapest ticket type.
	MinPrice    float64
	MaxPrice    float64
	MinCapacity int
}

// BrowseFilter is the default listing: active events that have not ended.
func BrowseFilter() Filter {
	return Filter{OnlyAvailable: true}
}

// Match reports whether e satisfies every set criterion at now.
func (f Filter) Match(e Event, now time.Time) bool {
	if f.OnlyAvailable && !e.IsAvailable(now) {
		return false
	}
	if f.Status != "" && f.Status != "todos" && e.Status != f.Status {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		if !containsFold(e.Name, q) && !containsFold(e.Description, q) &&
			!containsFold(e.City, q) && !containsFold(e.Department, q) {
			return false
		}
	}
	if c := strings.TrimSpace(f.City); c != "" && !containsFold(e.City, c) {
		return false
	}
	if d := strings.TrimSpace(f.Department); d != "" && !containsFold(e.Department, d) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(e.Category, f.Category) {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		start, ok := e.StartsAt()
		if !ok {
			return false
		}
		if !f.From.IsZero() && start.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && start.After(f.To) {
			return false
		}
	}
	if f.MinPrice > 0 && e.MinPrice() < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && e.MinPrice() > f.MaxPrice {
		return false
	}
	if f.MinCapacity > 0 && e.Capacity() < f.MinCapacity {
		return false
	}
	return true
}

// Apply returns the events matching f, keeping order.
func (f Filter) Apply(events []Event, now time.Time) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Match(e, now) {
			out = append(out, e)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
