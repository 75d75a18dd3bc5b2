package purchase

import (
	"errors"
	"fmt"
	"strings"

	"tiquetera/internal/api"
	"tiquetera/internal/events"

	"github.com/google/uuid"
)

// Step is the position of a flow in the purchase sequence.
type Step string

const (
	StepSelected        Step = "selected"
	StepAwaitingPayment Step = "awaiting_payment"
	StepVerifying       Step = "verifying"
	StepCompleted       Step = "completed"
	StepCancelled       Step = "cancelled"
	StepFailed          Step = "failed"
)

// Error definitions
var (
	ErrNothingSelected   = errors.New("select at least one ticket")
	ErrUnknownTicketType = errors.New("ticket type does not belong to this event")
	ErrInvalidQuantity   = errors.New("quantity cannot be negative")
	ErrWrongStep         = errors.New("operation not allowed at this step")
)

// CapacityError reports a quantity above what is left of a ticket type.
type CapacityError struct {
	TicketTypeID int
	Name         string
	Requested    int
	Remaining    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d %q tickets left, requested %d", e.Remaining, e.Name, e.Requested)
}

// Selection is the quantity chosen for one ticket type.
type Selection struct {
	TicketTypeID int     `json:"ticket_type_id"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
}

// Subtotal returns quantity times unit price.
func (s Selection) Subtotal() float64 {
	return float64(s.Quantity) * s.UnitPrice
}

// BuyResponse is the body returned by /events/{id}/buy/.
type BuyResponse struct {
	AmountDue api.Decimal `json:"total_a_pagar"`
	Message   string      `json:"message"`
	TicketIDs []int       `json:"ticket_ids,omitempty"`
}

// PurchaseResult is the outcome of the buy call for one ticket type.
type PurchaseResult struct {
	TicketTypeID int          `json:"ticket_type_id"`
	Quantity     int          `json:"quantity"`
	Response     *BuyResponse `json:"response,omitempty"`
	Error        string       `json:"error,omitempty"`
	Err          error        `json:"-"`
}

// OK reports whether the buy call succeeded.
func (r PurchaseResult) OK() bool { return r.Err == nil && r.Error == "" }

// PartialPurchaseError lists every buy call of a confirmation when at
// least one failed. Tickets already requested are not rolled back.
type PartialPurchaseError struct {
	Succeeded []PurchaseResult
	Failed    []PurchaseResult
}

func (e *PartialPurchaseError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("type %d: %s", f.TicketTypeID, f.Error))
	}
	return fmt.Sprintf("purchase failed for %d of %d ticket types (%s)",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(parts, "; "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *PartialPurchaseError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// FirstMessage returns the first failure message, for display.
func (e *PartialPurchaseError) FirstMessage() string {
	for _, f := range e.Failed {
		var status *api.StatusError
		if errors.As(f.Err, &status) && status.Message != "" {
			return status.Message
		}
		if f.Error != "" {
			return f.Error
		}
	}
	return ""
}

// FlowContext carries a purchase from selection to settlement. It is
// plain data so a caller can persist it between steps.
type FlowContext struct {
	ID            string              `json:"id"`
	EventID       int                 `json:"event_id"`
	Selections    []Selection         `json:"selections"`
	TicketTypes   []events.TicketType `json:"ticket_types"`
	TotalQuantity int                 `json:"total_quantity"`
	TotalAmount   float64             `json:"total_amount"`
	Results       []PurchaseResult    `json:"results,omitempty"`
	AmountDue     float64             `json:"amount_due"`
	Paid          bool                `json:"paid"`
	Gateway       *GatewaySession     `json:"gateway,omitempty"`
	Step          Step                `json:"step"`
}

// IsFree reports whether the confirmed purchase needs no payment: no buy
// call reported an amount due.
func (f FlowContext) IsFree() bool {
	return !f.Paid
}

// TicketIDs returns the ticket ids reported by the buy calls, if any.
func (f FlowContext) TicketIDs() []int {
	var ids []int
	for _, r := range f.Results {
		if r.Response != nil {
			ids = append(ids, r.Response.TicketIDs...)
		}
	}
	return ids
}

// Select validates quantities against the event's ticket types and opens
// a flow. quantities maps ticket type id to the wanted count. Nothing is
// sent to the backend.
func Select(eventID int, types []events.TicketType, quantities map[int]int) (FlowContext, error) {
	byID := make(map[int]events.TicketType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}

	for id, q := range quantities {
		if q < 0 {
			return FlowContext{}, fmt.Errorf("%w: type %d", ErrInvalidQuantity, id)
		}
		if _, ok := byID[id]; !ok && q > 0 {
			return FlowContext{}, fmt.Errorf("%w: %d", ErrUnknownTicketType, id)
		}
	}

	flow := FlowContext{
		ID:          uuid.NewString(),
		EventID:     eventID,
		TicketTypes: types,
		Step:        StepSelected,
	}

	// Walk types rather than the map so selections keep the event's order.
	for _, t := range types {
		q := quantities[t.ID]
		if q == 0 {
			continue
		}
		if q > t.Remaining() {
			return FlowContext{}, &CapacityError{
				TicketTypeID: t.ID,
				Name:         t.Name(),
				Requested:    q,
				Remaining:    t.Remaining(),
			}
		}
		sel := Selection{
			TicketTypeID: t.ID,
			Name:         t.Name(),
			Quantity:     q,
			UnitPrice:    t.Price.Float64(),
		}
		flow.Selections = append(flow.Selections, sel)
		flow.TotalQuantity += q
		flow.TotalAmount += sel.Subtotal()
	}

	if flow.TotalQuantity == 0 {
		return FlowContext{}, ErrNothingSelected
	}
	return flow, nil
}
