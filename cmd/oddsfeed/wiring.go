package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hetulpatel/hedj/internal/collectors"
	"github.com/hetulpatel/hedj/internal/config"
	"github.com/hetulpatel/hedj/internal/dedup"
	"github.com/hetulpatel/hedj/internal/kafka"
	"github.com/hetulpatel/hedj/internal/logging"
	"github.com/hetulpatel/hedj/internal/opportunity"
	"github.com/hetulpatel/hedj/internal/pipeline"
	"github.com/hetulpatel/hedj/internal/queue"
	"github.com/hetulpatel/hedj/internal/storage/csvfile"
	sqlstore "github.com/hetulpatel/hedj/internal/storage/sqlite"
)

// deps owns everything a command opens and closes it in reverse order.
type deps struct {
	cfg     *config.Config
	sqlite  *sqlstore.Store
	closers []func() error
}

func newDeps(c *config.Config) *deps {
	return &deps{cfg: c}
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logging.Warnf("[oddsfeed] close: %v", err)
		}
	}
}

func (d *deps) sqliteStore(ctx context.Context) (*sqlstore.Store, error) {
	if d.sqlite != nil {
		return d.sqlite, nil
	}
	store, err := sqlstore.Open(d.cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := store.CreateTables(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("create sqlite tables: %w", err)
	}
	d.sqlite = store
	d.closers = append(d.closers, store.Close)
	return store, nil
}

func (d *deps) history(ctx context.Context) (pipeline.History, error) {
	switch d.cfg.Storage.Backend {
	case "sqlite":
		return d.sqliteStore(ctx)
	default:
		return csvfile.NewHistory(d.cfg.Storage.HistoryPath), nil
	}
}

// pipeline wires stores and, when enabled, the opportunity ledger and Kafka
// publisher.
func (d *deps) pipeline(ctx context.Context, withDelivery bool) (*pipeline.Pipeline, error) {
	history, err := d.history(ctx)
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{
		History:  history,
		Latest:   csvfile.NewLatest(d.cfg.Storage.LatestPath),
		Detector: d.cfg.Detector(),
	}
	if !withDelivery {
		return p, nil
	}
	if d.cfg.Storage.RecordOpportunities {
		store, err := d.sqliteStore(ctx)
		if err != nil {
			return nil, err
		}
		p.Ledger = store
	}
	if d.cfg.Kafka.Enabled {
		p.Publish = d.publisher(ctx)
	}
	return p, nil
}

func (d *deps) publisher(ctx context.Context) pipeline.Publisher {
	brokers := kafka.ParseBrokers(d.cfg.Kafka.Brokers...)
	topic := d.cfg.Kafka.Topic

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
		logging.Warnf("[scan] ensure topic warning: %v", err)
	}
	cancel()

	writer := kafka.NewWriter(brokers, topic)
	d.closers = append(d.closers, writer.Close)
	return func(ctx context.Context, runID string, opps []opportunity.Opportunity, detectedAt time.Time) error {
		return queue.PublishOpportunities(ctx, writer, runID, opps, detectedAt)
	}
}

func (d *deps) provider(ctx context.Context) (collectors.Provider, error) {
	pc := d.cfg.Provider
	switch pc.Type {
	case "kafka":
		brokers := kafka.ParseBrokers(d.cfg.Kafka.Brokers...)
		waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		defer cancel()
		if err := kafka.WaitForBroker(waitCtx, brokers); err != nil {
			return nil, fmt.Errorf("wait for broker: %w", err)
		}
		topic := collectors.NewTopic(kafka.NewReader(brokers, pc.KafkaTopic, pc.KafkaGroup), pc.IdleTimeout)
		d.closers = append(d.closers, topic.Close)
		return topic, nil
	default:
		return collectors.NewInbox(pc.InboxPath, pc.ConsumeInbox), nil
	}
}

func (d *deps) dedupStore(now time.Time, dryRun bool) (dedup.Store, error) {
	var (
		store dedup.Store
		err   error
	)
	switch d.cfg.Dedup.Backend {
	case "redis":
		store, err = dedup.NewRedisStore(d.cfg.RedisOptions())
	default:
		store, err = dedup.OpenFile(d.cfg.Dedup.Path, d.cfg.Dedup.Retention, now)
	}
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}
	d.closers = append(d.closers, store.Close)
	if dryRun {
		return dedup.ReadOnly(store), nil
	}
	return store, nil
}
