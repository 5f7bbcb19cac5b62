package opportunity

import "time"

const payloadVersion = 1

// Payload is the envelope handed to the delivery side (Kafka topic, ledger).
type Payload struct {
	Version     int         `json:"version"`
	RunID       string      `json:"run_id"`
	Key         string      `json:"key"`
	DetectedAt  time.Time   `json:"detected_at"`
	Opportunity Opportunity `json:"opportunity"`
}

func NewPayload(runID string, opp Opportunity, detectedAt time.Time) Payload {
	return Payload{
		Version:     payloadVersion,
		RunID:       runID,
		Key:         opp.Key(),
		DetectedAt:  detectedAt.UTC(),
		Opportunity: opp,
	}
}
