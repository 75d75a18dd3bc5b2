package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// errUsage is returned when no command was given. Help has already been
// printed.
var errUsage = errors.New("command required")

// command is one CLI verb. flags is called once per invocation and binds
// into variables the run closure reads.
type command struct {
	name    string
	usage   string
	summary string
	flags   func() *pflag.FlagSet
	run     func(ctx context.Context, args []string) error
}

type commandSet []*command

func (cs commandSet) find(name string) *command {
	for _, c := range cs {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (cs commandSet) execute(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		cs.printHelp(out)
		return errUsage
	}
	if isHelpFlag(args[0]) || args[0] == "help" {
		cs.printHelp(out)
		return nil
	}

	cmd := cs.find(args[0])
	if cmd == nil {
		return fmt.Errorf("unknown command %q\n\nRun 'tiquetera --help' for usage.", args[0])
	}

	rest := args[1:]
	if cmd.flags != nil {
		fs := cmd.flags()
		fs.SetOutput(io.Discard)
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, pflag.ErrHelp) {
				cmd.printHelp(out, fs)
				return nil
			}
			return fmt.Errorf("%s\n\nRun 'tiquetera %s --help' for usage.", err, cmd.name)
		}
		rest = fs.Args()
	} else if len(rest) > 0 && isHelpFlag(rest[0]) {
		cmd.printHelp(out, nil)
		return nil
	}
	return cmd.run(ctx, rest)
}

func (cs commandSet) printHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: tiquetera <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, c := range cs {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	tw.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Run 'tiquetera <command> --help' for command flags.")
}

func (c *command) printHelp(out io.Writer, fs *pflag.FlagSet) {
	usage := c.usage
	if usage == "" {
		usage = c.name
	}
	fmt.Fprintf(out, "Usage: tiquetera %s\n\n%s\n", usage, c.summary)
	if fs != nil && fs.HasFlags() {
		fmt.Fprintf(out, "\nFlags:\n%s", fs.FlagUsages())
	}
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help"
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// requireArgs checks the positional argument count.
func requireArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: tiquetera %s", usage)
	}
	for _, a := range args {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("usage: tiquetera %s", usage)
		}
	}
	return nil
}
