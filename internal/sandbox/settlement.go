package sandbox

import (
	"context"
	"sync"
	"time"

	"tiquetera/pkg/clock"
	"tiquetera/pkg/logger"
)

// SettlementJobConfig contains configuration for the settlement job
type SettlementJobConfig struct {
	// Delay between the buyer's decision and the webhook landing.
	Delay         time.Duration
	CheckInterval time.Duration
}

// DefaultSettlementJobConfig returns default job configuration
func DefaultSettlementJobConfig() *SettlementJobConfig {
	return &SettlementJobConfig{
		Delay:         5 * time.Second,
		CheckInterval: 500 * time.Millisecond,
	}
}

type pendingSettlement struct {
	reference string
	approved  bool
	due       time.Time
}

// SettlementJob delivers gateway outcomes to the store after a delay,
// the way the real gateway's confirmation webhook lags behind the buyer's
// redirect.
type SettlementJob struct {
	store  *Store
	config *SettlementJobConfig
	clock  clock.Clock
	log    *logger.Logger

	mu       sync.Mutex
	queue    []pendingSettlement
	done     chan struct{}
	stopOnce sync.Once
}

// NewSettlementJob creates a new settlement job
func NewSettlementJob(store *Store, config *SettlementJobConfig, clk clock.Clock, log *logger.Logger) *SettlementJob {
	if config == nil {
		config = DefaultSettlementJobConfig()
	}
	return &SettlementJob{
		store:  store,
		config: config,
		clock:  clk,
		log:    log.WithComponent("settlement"),
		done:   make(chan struct{}),
	}
}

// Enqueue schedules an outcome. Without a delay it is applied at once.
func (j *SettlementJob) Enqueue(reference string, approved bool) {
	if j.config.Delay <= 0 {
		j.settle(reference, approved)
		return
	}
	j.mu.Lock()
	j.queue = append(j.queue, pendingSettlement{
		reference: reference,
		approved:  approved,
		due:       j.clock.Now().Add(j.config.Delay),
	})
	j.mu.Unlock()
}

// Start processes due settlements until ctx ends or Stop is called
func (j *SettlementJob) Start(ctx context.Context) {
	j.log.Info("Starting settlement job",
		"delay", j.config.Delay.String(),
		"interval", j.config.CheckInterval.String(),
	)
	go func() {
		ticker := time.NewTicker(j.config.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.ProcessDue()
			case <-j.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the job
func (j *SettlementJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		j.log.Info("Settlement job stopped")
	})
}

// ProcessDue applies every settlement whose delay has passed and returns
// how many were applied.
func (j *SettlementJob) ProcessDue() int {
	now := j.clock.Now()

	j.mu.Lock()
	var due []pendingSettlement
	pending := j.queue[:0]
	for _, p := range j.queue {
		if !p.due.After(now) {
			due = append(due, p)
			continue
		}
		pending = append(pending, p)
	}
	j.queue = pending
	j.mu.Unlock()

	for _, p := range due {
		j.settle(p.reference, p.approved)
	}
	return len(due)
}

// Pending reports how many settlements are waiting.
func (j *SettlementJob) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.queue)
}

// GetJobStatus returns the status of the job
func (j *SettlementJob) GetJobStatus() map[string]interface{} {
	return map[string]interface{}{
		"delay":          j.config.Delay.String(),
		"check_interval": j.config.CheckInterval.String(),
		"pending":        j.Pending(),
	}
}

func (j *SettlementJob) settle(reference string, approved bool) {
	if err := j.store.Settle(reference, approved); err != nil {
		j.log.Error("Error settling payment", "reference", reference, "error", err.Error())
		return
	}
	j.log.Info("Payment settled", "reference", reference, "approved", approved)
}
