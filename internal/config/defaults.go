package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/hetulpatel/hedj/internal/kafka"
)

// defaultBooks are the sportsbooks licensed in Illinois.
var defaultBooks = []string{"fanduel", "draftkings", "betmgm", "caesars", "pointsbetus", "betrivers", "espnbet"}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "csv")
	v.SetDefault("storage.history_path", "data/history/odds_history.csv")
	v.SetDefault("storage.latest_path", "data/latest/latest.csv")
	v.SetDefault("storage.sqlite_path", "data/hedj.db")
	v.SetDefault("storage.cleanup_days", 7)
	v.SetDefault("storage.record_opportunities", false)

	v.SetDefault("provider.type", "inbox")
	v.SetDefault("provider.inbox_path", "data/inbox/odds.jsonl")
	v.SetDefault("provider.consume_inbox", true)
	v.SetDefault("provider.sports", []string{})
	v.SetDefault("provider.kafka_topic", kafka.DefaultObservationTopic)
	v.SetDefault("provider.kafka_group", kafka.DefaultObservationGroup)
	v.SetDefault("provider.idle_timeout", 5*time.Second)

	v.SetDefault("books", defaultBooks)

	v.SetDefault("arbitrage.min_roi_percent", 0.5)
	v.SetDefault("arbitrage.max_roi_percent", 15.0)
	v.SetDefault("arbitrage.total_stake", 100.0)

	v.SetDefault("tight_line.max_implied_sum", 1.02)
	v.SetDefault("tight_line.window", 24*time.Hour)

	v.SetDefault("futures.min_edge_percent", 5.0)

	v.SetDefault("movers.spread_points", 2.5)
	v.SetDefault("movers.total_points", 3.0)
	v.SetDefault("movers.moneyline_cents", 30)

	v.SetDefault("dedup.backend", "file")
	v.SetDefault("dedup.path", "data/alerts/sent_alerts.json")
	v.SetDefault("dedup.retention", 24*time.Hour)
	v.SetDefault("dedup.redis.addr", "")
	v.SetDefault("dedup.redis.password", "")
	v.SetDefault("dedup.redis.db", 0)
	v.SetDefault("dedup.redis.prefix", "hedj:alerted")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{kafka.DefaultBroker})
	v.SetDefault("kafka.topic", kafka.DefaultOpportunityTopic)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.level", "info")
}
