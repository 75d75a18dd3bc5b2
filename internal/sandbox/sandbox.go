// Package sandbox is an in-memory stand-in for the marketplace backend:
// accounts, catalogs, events, purchases and a simulated payment gateway
// with a delayed confirmation webhook.
package sandbox

import (
	"context"

	"tiquetera/pkg/clock"
	"tiquetera/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Options configures a Sandbox.
type Options struct {
	Fixtures   *Fixtures
	Gateway    GatewayConfig
	Settlement *SettlementJobConfig
	APIPrefix  string
	Clock      clock.Clock
	Logger     *logger.Logger
}

// Sandbox wires the store, the settlement job and the HTTP handlers.
type Sandbox struct {
	Store      *Store
	Settlement *SettlementJob
	Controller *Controller
	apiPrefix  string
}

// New builds a sandbox. Missing options fall back to defaults.
func New(opts Options) (*Sandbox, error) {
	if opts.Fixtures == nil {
		opts.Fixtures = DefaultFixtures()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetDefault()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}

	store, err := NewStore(opts.Fixtures, opts.Clock)
	if err != nil {
		return nil, err
	}
	job := NewSettlementJob(store, opts.Settlement, opts.Clock, opts.Logger)
	return &Sandbox{
		Store:      store,
		Settlement: job,
		Controller: NewController(store, job, opts.Gateway, opts.APIPrefix, opts.Logger.WithComponent("sandbox")),
		apiPrefix:  opts.APIPrefix,
	}, nil
}

// Register mounts every sandbox route on engine.
func (s *Sandbox) Register(engine *gin.Engine) {
	SetupRoutes(engine.Group(s.apiPrefix), s.Controller, s.Store)
	SetupGatewayRoutes(engine, s.Controller)
}

// Start runs the settlement job until ctx ends.
func (s *Sandbox) Start(ctx context.Context) {
	s.Settlement.Start(ctx)
}

// Stop halts the settlement job.
func (s *Sandbox) Stop() {
	s.Settlement.Stop()
}
