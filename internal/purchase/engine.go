package purchase

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"tiquetera/internal/api"
	"tiquetera/internal/events"
	"tiquetera/internal/flowevents"
	"tiquetera/internal/shared/config"
	"tiquetera/internal/tickets"
	"tiquetera/pkg/clock"
	"tiquetera/pkg/logger"
)

// Notices shown when settlement cannot be confirmed. Neither is an error:
// the payment may still land after the flow ends.
const (
	NoticeUnconfirmed  = "No pudimos confirmar tu pago todavía. Revisa Mis Eventos más tarde."
	NoticeStillPending = "Tu pago sigue en proceso. Los tickets se activarán cuando se confirme; revisa Mis Eventos más tarde."
)

// Backend is the part of api.Client the engine needs.
type Backend interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...api.RequestOption) error
	Post(ctx context.Context, path string, body, out interface{}, opts ...api.RequestOption) error
}

type buyRequest struct {
	ConfigTypeID int `json:"config_type_id"`
	Amount       int `json:"amount"`
}

type payRequest struct {
	Amount int `json:"amount"`
}

// Verification is the result of waiting for the gateway webhook to settle
// the purchased tickets.
type Verification struct {
	Tickets []tickets.Ticket
	Settled bool
	Notice  string
}

// Engine runs the network steps of a purchase.
type Engine struct {
	backend   Backend
	publisher flowevents.Publisher
	clock     clock.Clock
	log       *logger.Logger

	grace   time.Duration
	poll    time.Duration
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for the grace period and polling.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithPublisher sets where flow events go.
func WithPublisher(p flowevents.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine using the payment timing from cfg.
func NewEngine(backend Backend, cfg config.PaymentConfig, opts ...Option) *Engine {
	e := &Engine{
		backend:   backend,
		publisher: flowevents.Nop{},
		clock:     clock.Real(),
		log:       logger.GetDefault(),
		grace:     cfg.GracePeriod,
		poll:      cfg.PollInterval,
		timeout:   cfg.SettlementTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.poll <= 0 {
		e.poll = 2 * time.Second
	}
	return e
}

// Select opens a flow and records it.
func (e *Engine) Select(ctx context.Context, eventID int, types []events.TicketType, quantities map[int]int) (FlowContext, error) {
	flow, err := Select(eventID, types, quantities)
	if err != nil {
		return FlowContext{}, err
	}
	e.record(ctx, flow, flowevents.TypeSelected, map[string]interface{}{
		"total_quantity": flow.TotalQuantity,
		"total_amount":   flow.TotalAmount,
	})
	return flow, nil
}

// Confirm sends one buy request per selected ticket type, concurrently,
// and waits for all of them. When any fails the returned error is a
// *PartialPurchaseError naming every success and failure; requests that
// succeeded are not undone. On success the flow moves to StepCompleted
// for free purchases and StepAwaitingPayment otherwise.
func (e *Engine) Confirm(ctx context.Context, flow FlowContext) (FlowContext, error) {
	if flow.Step != StepSelected {
		return flow, fmt.Errorf("%w: confirm from %s", ErrWrongStep, flow.Step)
	}
	if len(flow.Selections) == 0 {
		return flow, ErrNothingSelected
	}

	results := make([]PurchaseResult, len(flow.Selections))
	var wg sync.WaitGroup
	for i, sel := range flow.Selections {
		wg.Add(1)
		go func(i int, sel Selection) {
			defer wg.Done()
			result := PurchaseResult{TicketTypeID: sel.TicketTypeID, Quantity: sel.Quantity}
			var resp BuyResponse
			err := e.backend.Post(ctx, eventPath(flow.EventID, "buy"), buyRequest{
				ConfigTypeID: sel.TicketTypeID,
				Amount:       sel.Quantity,
			}, &resp)
			if err != nil {
				result.Err = err
				result.Error = err.Error()
			} else {
				result.Response = &resp
			}
			results[i] = result
		}(i, sel)
	}
	wg.Wait()

	flow.Results = results
	partial := &PartialPurchaseError{}
	due := 0.0
	paid := false
	for _, r := range results {
		if !r.OK() {
			partial.Failed = append(partial.Failed, r)
			continue
		}
		partial.Succeeded = append(partial.Succeeded, r)
		amount := r.Response.AmountDue.Float64()
		due += amount
		paid = paid || amount > 0
	}

	if len(partial.Failed) > 0 {
		flow.Step = StepFailed
		e.record(ctx, flow, flowevents.TypeConfirmFailed, map[string]interface{}{
			"failed":    len(partial.Failed),
			"succeeded": len(partial.Succeeded),
		})
		return flow, partial
	}

	flow.AmountDue = due
	flow.Paid = paid
	if flow.IsFree() {
		flow.Step = StepCompleted
		e.record(ctx, flow, flowevents.TypeCompletedFree, nil)
		return flow, nil
	}

	flow.Step = StepAwaitingPayment
	e.record(ctx, flow, flowevents.TypeConfirmed, map[string]interface{}{"amount_due": due})
	return flow, nil
}

// RequestPayment obtains the gateway session for a paid flow. The pay
// endpoint is called at most once per flow: a flow that already carries a
// session is returned unchanged.
func (e *Engine) RequestPayment(ctx context.Context, flow FlowContext) (FlowContext, error) {
	if flow.Step != StepAwaitingPayment {
		return flow, fmt.Errorf("%w: pay from %s", ErrWrongStep, flow.Step)
	}
	if flow.Gateway != nil {
		return flow, nil
	}

	var session GatewaySession
	if err := e.backend.Post(ctx, eventPath(flow.EventID, "pay"), payRequest{Amount: flow.TotalQuantity}, &session); err != nil {
		return flow, fmt.Errorf("failed to start payment: %w", err)
	}
	flow.Gateway = &session
	e.record(ctx, flow, flowevents.TypePaymentRequested, map[string]interface{}{
		"reference": session.ReferenceCode,
		"amount":    session.Amount.String(),
	})
	return flow, nil
}

// ApplySignal moves an awaiting flow according to the gateway redirect.
// A decline leaves the flow awaiting payment and returns ErrGatewayDeclined
// so the caller can offer a retry.
func (e *Engine) ApplySignal(ctx context.Context, flow FlowContext, sig Signal) (FlowContext, error) {
	if flow.Step != StepAwaitingPayment {
		return flow, fmt.Errorf("%w: signal at %s", ErrWrongStep, flow.Step)
	}
	switch sig {
	case SignalApproved:
		flow.Step = StepVerifying
		e.record(ctx, flow, flowevents.TypeApproved, nil)
		return flow, nil
	case SignalDeclined:
		e.record(ctx, flow, flowevents.TypeDeclined, nil)
		return flow, ErrGatewayDeclined
	default:
		return flow, nil
	}
}

// Cancel abandons the flow. Tickets already requested stay pending.
func (e *Engine) Cancel(ctx context.Context, flow FlowContext) FlowContext {
	if flow.Step == StepCompleted {
		return flow
	}
	flow.Step = StepCancelled
	e.record(ctx, flow, flowevents.TypeCancelled, nil)
	return flow
}

// Verify waits out the grace period, then polls the user's tickets until
// the purchased ones leave pendiente or the settlement timeout passes.
// Only context cancellation is returned as an error; backend failures and
// timeouts end with a notice instead.
func (e *Engine) Verify(ctx context.Context, flow FlowContext) (Verification, error) {
	if err := e.sleep(ctx, e.grace); err != nil {
		return Verification{}, err
	}

	deadline := e.clock.Now().Add(e.timeout)
	wanted := flow.TicketIDs()
	for {
		var mine []tickets.MyEvent
		if err := e.backend.Get(ctx, "/events/my/", nil, &mine); err != nil {
			if ctx.Err() != nil {
				return Verification{}, ctx.Err()
			}
			e.log.WarnContext(ctx, "Payment Verification Failed",
				"flow_id", flow.ID,
				"error", err.Error(),
			)
			e.record(ctx, flow, flowevents.TypeUnconfirmed, map[string]interface{}{"reason": err.Error()})
			return Verification{Notice: NoticeUnconfirmed}, nil
		}

		ev, _ := tickets.FindEvent(mine, flow.EventID)
		owned := filterTickets(ev.Tickets, wanted)
		if len(owned) > 0 && tickets.Settled(owned) {
			flow.Step = StepCompleted
			e.record(ctx, flow, flowevents.TypeVerified, map[string]interface{}{"tickets": len(owned)})
			return Verification{Tickets: owned, Settled: true}, nil
		}

		if !e.clock.Now().Before(deadline) {
			e.record(ctx, flow, flowevents.TypeUnconfirmed, map[string]interface{}{"reason": "timeout"})
			return Verification{Tickets: owned, Notice: NoticeStillPending}, nil
		}
		if err := e.sleep(ctx, e.poll); err != nil {
			return Verification{}, err
		}
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(d):
		return nil
	}
}

// record logs a transition and publishes it. Publishing is best effort.
func (e *Engine) record(ctx context.Context, flow FlowContext, t flowevents.Type, data map[string]interface{}) {
	e.log.LogFlowStep(ctx, flow.ID, strconv.Itoa(flow.EventID), string(flow.Step))

	event := flowevents.New(t, flow.ID, flow.EventID, string(flow.Step), e.clock.Now())
	for k, v := range data {
		event.With(k, v)
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.log.ErrorWithContext(ctx, "Failed to publish flow event", err, map[string]interface{}{
			"flow_id": flow.ID,
			"type":    string(t),
		})
	}
}

func filterTickets(all []tickets.Ticket, ids []int) []tickets.Ticket {
	if len(ids) == 0 {
		return all
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []tickets.Ticket
	for _, t := range all {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func eventPath(id int, action string) string {
	return fmt.Sprintf("/events/%d/%s/", id, action)
}
