package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/hedj/internal/movement"
	"github.com/hetulpatel/hedj/internal/odds"
	"github.com/hetulpatel/hedj/internal/opportunity"
	"github.com/hetulpatel/hedj/internal/pipeline"
)

func TestParseKinds(t *testing.T) {
	got, err := parseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, allKinds, got)

	got, err = parseKinds([]string{" Tight_Line ", "arbitrage"})
	require.NoError(t, err)
	assert.Equal(t, []opportunity.Kind{opportunity.KindTightLine, opportunity.KindArbitrage}, got)

	_, err = parseKinds([]string{"middles"})
	assert.Error(t, err)
}

func scanResult() pipeline.ScanResult {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return pipeline.ScanResult{
		RunID:      "run-1",
		DetectedAt: at,
		Detected:   3,
		Suppressed: 2,
		New: []opportunity.Opportunity{
			opportunity.NewFuturesValue(opportunity.FuturesValue{
				Sport:       "NBA",
				MarketTitle: "NBA Championship Winner",
				Selection:   "Celtics",
				BestBook:    "fanduel",
				BestPrice:   450,
				WorstBook:   "draftkings",
				WorstPrice:  300,
				EdgePercent: 6.88,
				ObservedAt:  at,
			}),
		},
	}
}

func TestWriteScan_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScan(&buf, "text", scanResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "6.88% edge NBA Celtics")
	assert.Equal(t, "1 new, 2 suppressed, 3 detected (run run-1)", lines[1])
}

func TestWriteScan_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScan(&buf, "json", scanResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var decoded opportunity.Payload
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "futures_value|NBA|Celtics", decoded.Key)
	assert.Equal(t, opportunity.KindFuturesValue, decoded.Opportunity.Kind)
	require.NotNil(t, decoded.Opportunity.FuturesValue)
	assert.Equal(t, "fanduel", decoded.Opportunity.FuturesValue.BestBook)
}

func TestWriteMovers(t *testing.T) {
	movers := movement.Significant([]odds.Movement{{
		Book: "fanduel", Sport: "NBA", EventID: "e1", HomeTeam: "Lakers", AwayTeam: "Celtics",
		Market: odds.MarketMoneyline, Outcome: odds.OutcomeHome,
		OpeningPrice: -120, CurrentPrice: -150, PriceMovement: -30,
	}}, movement.DefaultThresholds())

	var text bytes.Buffer
	require.NoError(t, writeMovers(&text, "text", movers))
	assert.Equal(t, "NBA Celtics @ Lakers home (fanduel): moneyline shortened -120 to -150\n", text.String())

	var js bytes.Buffer
	require.NoError(t, writeMovers(&js, "json", movers))
	var decoded movement.Mover
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, -30, decoded.PriceMovement)
	assert.Equal(t, odds.MarketMoneyline, decoded.Market)
}
