// tiquetera is the command-line client for the event ticketing
// marketplace: browse events, buy tickets, pay through the gateway and
// keep the QR codes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tiquetera/internal/api"
	"tiquetera/internal/shared/config"
	"tiquetera/pkg/logger"

	"github.com/joho/godotenv"
)

var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runContext(ctx, args, stdin, stdout, stderr)
}

// runContext runs one command. Cancelling ctx is the same as Ctrl+C.
func runContext(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// .env is optional for the CLI
	_ = godotenv.Load()

	if len(args) > 0 && args[0] == "--version" {
		fmt.Fprintf(stdout, "tiquetera %s\n", Version)
		return 0
	}

	cfg := config.Load()
	log := logger.NewWithWriter(stderr)
	logger.SetDefault(log)

	a, err := newApp(cfg, log, stdin, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := commands(a).execute(ctx, args, stdout); err != nil {
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return 1
	}
	return 0
}

func commands(a *app) commandSet {
	return commandSet{
		eventsCommand(a),
		eventCommand(a),
		typesCommand(a),
		buyCommand(a),
		ticketsCommand(a),
		qrCommand(a),
		catalogsCommand(a),
		loginCommand(a),
		logoutCommand(a),
		whoamiCommand(a),
		registerCommand(a),
		verifyEmailCommand(a),
	}
}

// describe turns backend failures into something a buyer can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return "tu sesión expiró, ejecuta 'tiquetera login'"
	case errors.Is(err, api.ErrNetwork):
		return "no se pudo conectar con el servidor"
	case errors.Is(err, api.ErrNotFound):
		return "no encontrado"
	case errors.Is(err, api.ErrRateLimited):
		return "demasiadas solicitudes, intenta más tarde"
	}
	var se *api.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
