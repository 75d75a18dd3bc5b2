package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tiquetera/internal/checkout"
	"tiquetera/internal/purchase"

	"github.com/spf13/pflag"
)

func buyCommand(a *app) *command {
	var (
		specs []string
		yes   bool
	)
	return &command{
		name:    "buy",
		usage:   "buy <event-id> --type ID=CANT [--type ID=CANT ...] [--yes]",
		summary: "Compra tickets y paga en la pasarela",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("buy")
			fs.StringArrayVarP(&specs, "type", "t", nil, "tipo de ticket y cantidad, p. ej. 11=2")
			fs.BoolVarP(&yes, "yes", "y", false, "no pedir confirmación")
			return fs
		},
		run: func(ctx context.Context, args []string) error {
			eventID, err := eventArg(args, "buy <event-id> --type ID=CANT")
			if err != nil {
				return err
			}
			quantities, err := parseQuantities(specs)
			if err != nil {
				return err
			}

			types, err := a.events.TicketTypes(ctx, eventID)
			if err != nil {
				return err
			}
			flow, err := a.engine.Select(ctx, eventID, types, quantities)
			if err != nil {
				return selectionError(err)
			}
			printSelection(a, flow)

			if !yes && !a.confirm("¿Confirmar compra?") {
				a.engine.Cancel(ctx, flow)
				fmt.Fprintln(a.out, "Compra cancelada.")
				return nil
			}

			flow, err = a.engine.Confirm(ctx, flow)
			var partial *purchase.PartialPurchaseError
			if errors.As(err, &partial) {
				for _, r := range partial.Succeeded {
					fmt.Fprintf(a.out, "  tipo %d: reservado\n", r.TicketTypeID)
				}
				for _, r := range partial.Failed {
					fmt.Fprintf(a.out, "  tipo %d: %s\n", r.TicketTypeID, r.Error)
				}
				return errors.New(partial.FirstMessage())
			}
			if err != nil {
				return err
			}

			if flow.Step == purchase.StepCompleted {
				fmt.Fprintln(a.out, "¡Compra exitosa! Tus tickets ya aparecen en 'tiquetera tickets'.")
				return nil
			}
			fmt.Fprintf(a.out, "Total a pagar: %s\n", purchase.FormatCOP(flow.AmountDue))
			return payFlow(ctx, a, flow)
		},
	}
}

// payFlow drives the gateway until the payment is approved and verified,
// or the buyer gives up. Retries reuse the same gateway session.
func payFlow(ctx context.Context, a *app, flow purchase.FlowContext) error {
	flow, err := a.engine.RequestPayment(ctx, flow)
	if err != nil {
		return err
	}
	gw := *flow.Gateway
	if !gw.Sandbox && gw.CheckoutURLOverride == "" && !a.cfg.Payment.Production {
		return errors.New("el backend pidió la pasarela de producción; define PAYMENT_PRODUCTION=true para continuar")
	}

	srv := checkout.New(a.cfg.Payment.CheckoutAddr, gw, a.log)
	url, err := srv.Start()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(a.out, "Abre este enlace en tu navegador para pagar %s:\n  %s\n",
		purchase.FormatCOP(gw.AmountValue()), url)
	for {
		fmt.Fprintln(a.out, "Esperando la respuesta de la pasarela (Ctrl+C para cancelar)...")
		sig, err := srv.Wait(ctx)
		if err != nil {
			if ctx.Err() != nil {
				a.engine.Cancel(context.WithoutCancel(ctx), flow)
				fmt.Fprintln(a.out, "\nPago cancelado. Tus tickets quedan pendientes en 'tiquetera tickets'.")
				return nil
			}
			return err
		}

		flow, err = a.engine.ApplySignal(ctx, flow, sig)
		if errors.Is(err, purchase.ErrGatewayDeclined) {
			fmt.Fprintln(a.out, "El pago fue rechazado.")
			if !a.confirm("¿Reintentar el pago?") {
				a.engine.Cancel(ctx, flow)
				fmt.Fprintln(a.out, "Pago cancelado. Tus tickets quedan pendientes en 'tiquetera tickets'.")
				return nil
			}
			drainLandings(srv)
			fmt.Fprintf(a.out, "Vuelve a abrir el enlace para reintentar el pago:\n  %s\n", url)
			continue
		}
		if err != nil {
			return err
		}
		break
	}

	fmt.Fprintln(a.out, "Pago aprobado. Verificando con el servidor...")
	v, err := a.engine.Verify(ctx, flow)
	if err != nil {
		return err
	}
	if v.Settled {
		fmt.Fprintln(a.out, "¡Pago confirmado! Tus tickets:")
		printTicketTable(a, v.Tickets)
		return nil
	}
	if len(v.Tickets) > 0 {
		printTicketTable(a, v.Tickets)
	}
	fmt.Fprintln(a.out, v.Notice)
	return nil
}

// drainLandings drops response page visits left over from the declined
// attempt so a reload of that page is not read as a second decline.
func drainLandings(srv *checkout.Server) {
	for {
		select {
		case <-srv.Landings():
		default:
			return
		}
	}
}

// parseQuantities reads ID=CANT pairs. Repeated ids add up.
func parseQuantities(pairs []string) (map[int]int, error) {
	if len(pairs) == 0 {
		return nil, errors.New("indica al menos un --type ID=CANT (ver 'tiquetera types <event-id>')")
	}
	out := make(map[int]int, len(pairs))
	for _, pair := range pairs {
		idPart, qtyPart, ok := strings.Cut(pair, "=")
		if !ok {
			qtyPart = "1"
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid ticket type %q", pair)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("invalid quantity in %q", pair)
		}
		out[id] += qty
	}
	return out, nil
}

func selectionError(err error) error {
	var capErr *purchase.CapacityError
	switch {
	case errors.As(err, &capErr):
		return fmt.Errorf("solo quedan %d tickets de %s", capErr.Remaining, capErr.Name)
	case errors.Is(err, purchase.ErrUnknownTicketType):
		return errors.New("el tipo de ticket no pertenece a este evento")
	case errors.Is(err, purchase.ErrNothingSelected):
		return errors.New("selecciona al menos un ticket")
	}
	return err
}

func printSelection(a *app, flow purchase.FlowContext) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIPO\tCANT\tPRECIO\tSUBTOTAL")
	for _, s := range flow.Selections {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.Quantity, priceLabel(s.UnitPrice), priceLabel(s.Subtotal()))
	}
	fmt.Fprintf(tw, "Total\t%d\t\t%s\n", flow.TotalQuantity, priceLabel(flow.TotalAmount))
	tw.Flush()
}
