package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"tiquetera/internal/tickets"

	"github.com/spf13/pflag"
)

func ticketsCommand(a *app) *command {
	var (
		eventID int
		past    bool
	)
	return &command{
		name:    "tickets",
		usage:   "tickets [--event ID] [--past]",
		summary: "Lista tus tickets agrupados por evento",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("tickets")
			fs.IntVar(&eventID, "event", 0, "solo este evento")
			fs.BoolVar(&past, "past", false, "incluir eventos pasados")
			return fs
		},
		run: func(ctx context.Context, _ []string) error {
			mine, err := a.tickets.MyEvents(ctx)
			if err != nil {
				return err
			}
			if eventID > 0 {
				ev, ok := tickets.FindEvent(mine, eventID)
				if !ok {
					fmt.Fprintln(a.out, "No tienes tickets para este evento.")
					return nil
				}
				mine = []tickets.MyEvent{ev}
			} else if !past {
				mine, _ = tickets.SplitUpcoming(mine, a.clock.Now())
			}
			if len(mine) == 0 {
				fmt.Fprintln(a.out, "Aún no tienes tickets.")
				return nil
			}

			for i, ev := range mine {
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				printMyEvent(a, ev)
			}
			return nil
		},
	}
}

func printMyEvent(a *app, ev tickets.MyEvent) {
	sum := tickets.Summarize(ev.Tickets)
	fmt.Fprintf(a.out, "%s (evento %d) %s, %s\n", ev.Event, ev.EventID, ev.Date, ev.City)
	fmt.Fprintf(a.out, "%d entradas: %d activas, %d pendientes\n", sum.Admission, sum.Active, sum.Pending)

	printTicketTable(a, ev.Tickets)
	if sum.Pending > 0 {
		fmt.Fprintln(a.out, tickets.PendingNotice)
	}
}

func printTicketTable(a *app, ts []tickets.Ticket) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tTIPO\tCANT\tESTADO\tPAGADO\tQR")
	for _, t := range ts {
		view := tickets.Present(t)
		qr := "-"
		switch {
		case view.QRAction:
			qr = "disponible"
		case view.Notice == tickets.QRMissingNotice:
			qr = "no disponible"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%d\t%s\t%s\t%s\n",
			t.ID, t.Type, t.Amount, view.Info.Label, priceLabel(t.PricePaid.Float64()), qr)
	}
	tw.Flush()
}

func qrCommand(a *app) *command {
	var dir string
	return &command{
		name:    "qr",
		usage:   "qr <event-id> <ticket-id> [--dir DIR]",
		summary: "Guarda el código QR de un ticket como PNG",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("qr")
			fs.StringVarP(&dir, "dir", "d", ".", "carpeta de destino")
			return fs
		},
		run: func(ctx context.Context, args []string) error {
			if err := requireArgs(args, 2, "qr <event-id> <ticket-id>"); err != nil {
				return err
			}
			eventID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			ticketID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid ticket id %q", args[1])
			}

			path, err := a.tickets.SaveQR(ctx, eventID, ticketID, dir)
			switch {
			case errors.Is(err, tickets.ErrNoTickets):
				return errors.New("no tienes tickets para este evento")
			case errors.Is(err, tickets.ErrTicketMissing):
				return errors.New("ticket no encontrado")
			case err != nil:
				return err
			}
			fmt.Fprintf(a.out, "QR guardado en %s\n", path)
			return nil
		},
	}
}
