package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"tiquetera/internal/api"
	"tiquetera/internal/auth"
	"tiquetera/internal/catalogs"
	"tiquetera/internal/events"
	"tiquetera/internal/flowevents"
	"tiquetera/internal/purchase"
	"tiquetera/internal/session"
	"tiquetera/internal/shared/config"
	"tiquetera/internal/tickets"
	"tiquetera/pkg/cache"
	"tiquetera/pkg/clock"
	"tiquetera/pkg/logger"
)

// app holds the services every command shares.
type app struct {
	cfg *config.Config
	log *logger.Logger
	out io.Writer
	in  *bufio.Reader

	store    session.Store
	client   *api.Client
	catalogs *catalogs.Cache
	events   events.Service
	tickets  tickets.Service
	auth     auth.Service
	engine   *purchase.Engine
	clock    clock.Clock

	closers []func() error
}

func newApp(cfg *config.Config, log *logger.Logger, in io.Reader, out io.Writer) (*app, error) {
	a := &app{
		cfg:   cfg,
		log:   log,
		out:   out,
		in:    bufio.NewReader(in),
		clock: clock.Real(),
	}

	var redisSvc cache.Service
	if cfg.Session.Store == "redis" || cfg.Catalog.Snapshot {
		client, err := cache.Connect(cache.Config{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		redisSvc = cache.NewService(client)
	}

	switch cfg.Session.Store {
	case "memory":
		a.store = session.NewMemoryStore()
	case "redis":
		a.store = session.NewRedisStore(redisSvc, "", cfg.Redis.SessionTTL)
	case "file", "":
		a.store = session.NewFileStore(cfg.Session.Path)
	default:
		return nil, fmt.Errorf("unknown session store %q (memory, file or redis)", cfg.Session.Store)
	}

	a.client = api.NewClient(cfg.API, a.store, api.WithLogger(log))

	cacheOpts := []catalogs.Option{
		catalogs.WithPolicy(catalogs.ParseFreshnessPolicy(cfg.Catalog.Freshness)),
		catalogs.WithLogger(log),
	}
	if cfg.Catalog.Snapshot {
		cacheOpts = append(cacheOpts, catalogs.WithSnapshotStore(
			catalogs.NewRedisSnapshotStore(redisSvc, backendHost(cfg.API.BaseURL)),
		))
	}
	a.catalogs = catalogs.NewCache(catalogs.NewBackendFetcher(a.client, cfg.API.CatalogTimeout), cfg.Catalog.TTL, cacheOpts...)

	a.events = events.NewService(a.client, a.clock)
	a.tickets = tickets.NewService(a.client, log)
	a.auth = auth.NewService(a.client, a.store, log)

	var publisher flowevents.Publisher = flowevents.Nop{}
	if cfg.Kafka.Enabled {
		kc := flowevents.DefaultKafkaProducerConfig()
		kc.Brokers = cfg.Kafka.Brokers
		kc.Topic = cfg.Kafka.Topic
		p, err := flowevents.NewKafkaPublisher(kc, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher = p
		a.closers = append(a.closers, p.Close)
	}
	a.engine = purchase.NewEngine(a.client, cfg.Payment,
		purchase.WithLogger(log),
		purchase.WithPublisher(publisher),
		purchase.WithClock(a.clock),
	)

	return a, nil
}

// restoreCatalogs warms the catalog cache from Redis when configured.
func (a *app) restoreCatalogs(ctx context.Context) {
	if _, err := a.catalogs.Restore(ctx); err != nil {
		a.log.WarnContext(ctx, "Catalog snapshot unavailable", "error", err.Error())
	}
}

// Close releases Redis and Kafka connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Close failed", "error", err.Error())
		}
	}
	a.closers = nil
}

// prompt reads one trimmed line after printing label.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question. Anything but s/si/y/yes is no.
func (a *app) confirm(question string) bool {
	answer, err := a.prompt(question + " [s/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "s", "si", "sí", "y", "yes":
		return true
	}
	return false
}

// backendHost namespaces catalog snapshots by backend.
func backendHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Host
}
