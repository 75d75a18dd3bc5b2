package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"tiquetera/internal/events"
	"tiquetera/internal/purchase"

	"github.com/spf13/pflag"
)

func eventsCommand(a *app) *command {
	var (
		query    string
		city     string
		category string
		status   string
		minPrice float64
		maxPrice float64
		all      bool
	)
	return &command{
		name:    "events",
		usage:   "events [flags]",
		summary: "Lista los eventos disponibles",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("events")
			fs.StringVarP(&query, "query", "q", "", "texto a buscar en nombre, descripción o ciudad")
			fs.StringVar(&city, "city", "", "ciudad")
			fs.StringVar(&category, "category", "", "categoría")
			fs.StringVar(&status, "status", "", "estado (activo, programado, cancelado, finalizado)")
			fs.Float64Var(&minPrice, "min-price", 0, "precio mínimo")
			fs.Float64Var(&maxPrice, "max-price", 0, "precio máximo")
			fs.BoolVar(&all, "all", false, "incluir eventos no disponibles")
			return fs
		},
		run: func(ctx context.Context, _ []string) error {
			f := events.Filter{
				Query:         query,
				City:          city,
				Category:      category,
				Status:        events.Status(status),
				MinPrice:      minPrice,
				MaxPrice:      maxPrice,
				OnlyAvailable: !all,
			}
			list, err := a.events.Browse(ctx, f)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, "No hay eventos que coincidan.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEVENTO\tFECHA\tCIUDAD\tESTADO\tDESDE")
			for _, e := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.Name, eventDate(e), e.City, e.Status.Label(), priceLabel(e.MinPrice()))
			}
			return tw.Flush()
		},
	}
}

func eventCommand(a *app) *command {
	return &command{
		name:    "event",
		usage:   "event <id>",
		summary: "Muestra el detalle de un evento",
		run: func(ctx context.Context, args []string) error {
			id, err := eventArg(args, "event <id>")
			if err != nil {
				return err
			}
			e, err := a.events.Get(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s\n", e.Name)
			fmt.Fprintf(a.out, "Estado:    %s\n", e.Status.Label())
			fmt.Fprintf(a.out, "Fecha:     %s\n", eventDate(*e))
			fmt.Fprintf(a.out, "Lugar:     %s, %s, %s\n", e.City, e.Department, e.Country)
			if e.Category != "" {
				fmt.Fprintf(a.out, "Categoría: %s\n", e.Category)
			}
			if e.Description != "" {
				fmt.Fprintf(a.out, "\n%s\n", e.Description)
			}
			if e.HasEnded(a.clock.Now()) {
				fmt.Fprintln(a.out, "\nEste evento ya terminó.")
			} else if !e.Status.AllowsPurchase() {
				fmt.Fprintln(a.out, "\nEste evento no está a la venta.")
			}
			fmt.Fprintln(a.out)
			return printTicketTypes(a, e.TicketTypes)
		},
	}
}

func typesCommand(a *app) *command {
	return &command{
		name:    "types",
		usage:   "types <event-id>",
		summary: "Lista los tipos de ticket de un evento",
		run: func(ctx context.Context, args []string) error {
			id, err := eventArg(args, "types <event-id>")
			if err != nil {
				return err
			}
			types, err := a.events.TicketTypes(ctx, id)
			if err != nil {
				return err
			}
			return printTicketTypes(a, types)
		},
	}
}

func printTicketTypes(a *app, types []events.TicketType) error {
	if len(types) == 0 {
		fmt.Fprintln(a.out, "Sin tipos de ticket.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIPO\tPRECIO\tDISPONIBLES")
	for _, t := range types {
		remaining := strconv.Itoa(t.Remaining())
		if t.SoldOut() {
			remaining = "Agotado"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.ID, t.Name(), priceLabel(t.Price.Float64()), remaining)
	}
	return tw.Flush()
}

func eventArg(args []string, usage string) (int, error) {
	if err := requireArgs(args, 1, usage); err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", args[0])
	}
	return id, nil
}

func eventDate(e events.Event) string {
	if t, ok := e.StartsAt(); ok {
		return t.Local().Format("2006-01-02 15:04")
	}
	return e.Date
}

func priceLabel(v float64) string {
	if v <= 0 {
		return "Gratis"
	}
	return purchase.FormatCOP(v)
}
