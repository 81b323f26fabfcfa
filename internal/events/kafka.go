package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"wrapregistry/internal/platform/kafka"
)

// kafkaMessage is the wire shape of one mint notification. Topics keep
// the ledger ordering so downstream consumers can filter the way
// on-ledger subscribers would.
type kafkaMessage struct {
	ID        string   `json:"id"`
	Instance  string   `json:"instance"`
	Topics    []string `json:"topics"`
	Payload   string   `json:"payload"`
	MintedAt  string   `json:"minted_at"`
	SchemaVer int      `json:"schema_version"`
}

// KafkaSink publishes mint notifications to a Kafka topic, keyed by
// recipient so one user's wraps stay ordered within a partition.
type KafkaSink struct {
	client *kafka.Client
}

func NewKafkaSink(client *kafka.Client) *KafkaSink {
	return &KafkaSink{client: client}
}

func (s *KafkaSink) Publish(ctx context.Context, batch []Event) error {
	records := make([]*kgo.Record, 0, len(batch))
	for _, event := range batch {
		value, err := json.Marshal(kafkaMessage{
			ID:        event.ID.String(),
			Instance:  string(event.Instance),
			Topics:    event.Topics(),
			Payload:   event.Archetype,
			MintedAt:  event.MintedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			SchemaVer: 1,
		})
		if err != nil {
			return fmt.Errorf("marshal mint event %s: %w", event.ID, err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(event.User),
			Value: value,
		})
	}

	if err := s.client.ProduceSync(ctx, records...); err != nil {
		return fmt.Errorf("produce mint events: %w", err)
	}
	return nil
}
