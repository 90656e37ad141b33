// Package worker provides async screening of ingested transactions.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/screening"
	"github.com/opensource-finance/harrier/internal/velocity"
)

// defaultVelocityWindow is the lookback used for the velocity_count
// variable. It matches the ingest-time counter window so screening
// reads are served from the counter.
const defaultVelocityWindow = int(velocity.DefaultWindow / time.Second)

// Worker screens ingested transactions asynchronously from the EventBus.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	engine *screening.Engine

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process.
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, engine *screening.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		engine: engine,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startTenantWorker subscribes one tenant's ingest topic.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicTransactionIngested, func(ctx context.Context, msg *domain.Message) error {
		// Tracked so Stop can wait for in-flight screenings.
		w.wg.Add(1)
		defer w.wg.Done()
		return w.screenTransaction(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicTransactionIngested,
	)

	return nil
}

// screenTransaction runs the screening rules over one ingested transaction,
// persists the hits, and raises an alert on any failing rule.
func (w *Worker) screenTransaction(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var tx domain.Transaction
	if err := json.Unmarshal(msg.Payload, &tx); err != nil {
		slog.Error("failed to parse ingested transaction",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if tx.TenantID != "" {
		tenantID = tx.TenantID
	}

	slog.Debug("screening transaction",
		"tx_id", tx.ID,
		"tenant_id", tenantID,
	)

	results, err := w.engine.EvaluateAll(ctx, &screening.EvaluateInput{
		TenantID:       tenantID,
		Tx:             &tx,
		VelocityWindow: defaultVelocityWindow,
	})
	if err != nil {
		slog.Error("rule evaluation failed",
			"tx_id", tx.ID,
			"error", err,
		)
		return err
	}

	failed := 0
	for i := range results {
		result := &results[i]
		if w.repo != nil {
			if err := w.repo.SaveRuleResult(ctx, tenantID, result); err != nil {
				slog.Error("failed to save rule result",
					"tx_id", tx.ID,
					"rule_id", result.RuleID,
					"error", err,
				)
			}
		}
		if result.SubRuleRef == domain.RuleOutcomeFail {
			failed++
		}
	}

	if failed > 0 {
		alert := Alert{
			TxID:        tx.ID,
			TenantID:    tenantID,
			FailedRules: failed,
			Results:     results,
			RaisedAt:    time.Now().UTC(),
		}
		payload, _ := json.Marshal(alert)
		if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"tx_id", tx.ID,
				"error", err,
			)
		}
	}

	slog.Info("transaction screened",
		"tx_id", tx.ID,
		"tenant_id", tenantID,
		"rules_evaluated", len(results),
		"rules_failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Alert is the payload published on the alert topic when screening fails.
type Alert struct {
	TxID        string              `json:"txId"`
	TenantID    string              `json:"tenantId"`
	FailedRules int                 `json:"failedRules"`
	Results     []domain.RuleResult `json:"results"`
	RaisedAt    time.Time           `json:"raisedAt"`
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
