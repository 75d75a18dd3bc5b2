package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"tiquetera/internal/catalogs"

	"github.com/spf13/pflag"
)

func catalogsCommand(a *app) *command {
	var (
		department string
		documents  bool
		refresh    bool
	)
	return &command{
		name:    "catalogs",
		usage:   "catalogs [--department ID] [--documents] [--refresh]",
		summary: "Muestra departamentos, ciudades o tipos de documento",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("catalogs")
			fs.StringVar(&department, "department", "", "lista las ciudades de este departamento")
			fs.BoolVar(&documents, "documents", false, "lista los tipos de documento")
			fs.BoolVar(&refresh, "refresh", false, "ignora la caché")
			return fs
		},
		run: func(ctx context.Context, _ []string) error {
			a.restoreCatalogs(ctx)
			useCache := !refresh

			var (
				entries []catalogs.Entry
				err     error
			)
			switch {
			case documents:
				entries = a.catalogs.FetchDocumentTypes(ctx, useCache)
			case department != "":
				entries, err = a.catalogs.FetchCitiesByDepartment(ctx, department, useCache)
			default:
				entries, err = a.catalogs.FetchDepartments(ctx, useCache)
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "Sin resultados.")
				return nil
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNOMBRE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.ID, e.Name)
			}
			return tw.Flush()
		},
	}
}
