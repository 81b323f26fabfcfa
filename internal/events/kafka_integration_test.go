//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"wrapregistry/internal/events"
	"wrapregistry/internal/platform/kafka"
	"wrapregistry/internal/registry/store"
	id "wrapregistry/pkg/domain"
	"wrapregistry/pkg/testutil/containers"
)

// mintMessage mirrors the published wire shape. The test keeps its own
// copy so producer drift shows up as a failure here.
type mintMessage struct {
	ID        string   `json:"id"`
	Instance  string   `json:"instance"`
	Topics    []string `json:"topics"`
	Payload   string   `json:"payload"`
	MintedAt  string   `json:"minted_at"`
	SchemaVer int      `json:"schema_version"`
}

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
	topic    string
	client   *kafka.Client
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

// SetupTest gives every test its own topic so runs cannot see each
// other's records.
func (s *KafkaSinkSuite) SetupTest() {
	s.topic = "wrap.mint.events." + uuid.NewString()[:8]

	client, err := kafka.New(s.redpanda.Brokers, s.topic, "wrapregistry-test")
	s.Require().NoError(err)
	s.Require().NotNil(client)
	s.Require().NoError(client.EnsureTopic(context.Background(), 1))
	s.client = client
}

func (s *KafkaSinkSuite) TearDownTest() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaSinkSuite) TestEnsureTopicIsIdempotent() {
	s.Require().NoError(s.client.EnsureTopic(context.Background(), 1))
}

func (s *KafkaSinkSuite) TestPublishRoundTrip() {
	ctx := context.Background()
	minted := time.Date(2024, 3, 1, 12, 0, 0, 250e6, time.UTC)
	batch := []events.Event{
		{ID: uuid.New(), Instance: "reg-kafka", User: "alice", Period: 2024, Archetype: "explorer", MintedAt: minted},
		{ID: uuid.New(), Instance: "reg-kafka", User: "bob", Period: 2024, Archetype: "cartographer", MintedAt: minted},
	}

	sink := events.NewKafkaSink(s.client)
	s.Require().NoError(sink.Publish(ctx, batch))

	records := s.consume(2)
	s.Require().Len(records, 2)

	byKey := make(map[string]mintMessage, len(records))
	for _, record := range records {
		s.Equal(s.topic, record.Topic)
		var msg mintMessage
		s.Require().NoError(json.Unmarshal(record.Value, &msg))
		byKey[string(record.Key)] = msg
	}

	alice, ok := byKey["alice"]
	s.Require().True(ok, "records are keyed by recipient")
	s.Equal(batch[0].ID.String(), alice.ID)
	s.Equal("reg-kafka", alice.Instance)
	s.Equal([]string{"mint", "alice", "2024"}, alice.Topics)
	s.Equal("explorer", alice.Payload)
	s.Equal("2024-03-01T12:00:00.250Z", alice.MintedAt)
	s.Equal(1, alice.SchemaVer)

	bob, ok := byKey["bob"]
	s.Require().True(ok)
	s.Equal(batch[1].ID.String(), bob.ID)
	s.Equal("cartographer", bob.Payload)
}

func (s *KafkaSinkSuite) TestDrainPublishesStagedEvents() {
	ctx := context.Background()
	mem := store.NewMemory()

	stage := func(user string, period uint64) {
		s.Require().NoError(mem.AppendEvent(ctx, events.Event{
			ID:        uuid.New(),
			Instance:  "reg-kafka",
			User:      id.AccountID(user),
			Period:    period,
			Archetype: "explorer",
			MintedAt:  time.Now().UTC(),
		}))
	}
	stage("alice", 2024)
	stage("bob", 2024)
	stage("alice", 2025)

	worker := events.NewWorker(mem, events.NewKafkaSink(s.client),
		events.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(worker.Drain(ctx))

	staged, err := mem.ListUnpublishedEvents(ctx, 10)
	s.Require().NoError(err)
	s.Empty(staged, "drained events must not be re-listed")

	// A second drain finds nothing to publish.
	s.Require().NoError(worker.Drain(ctx))

	records := s.consume(3)
	perUser := make(map[string]int)
	var alicePeriods []string
	for _, record := range records {
		perUser[string(record.Key)]++
		var msg mintMessage
		s.Require().NoError(json.Unmarshal(record.Value, &msg))
		s.Require().Len(msg.Topics, 3)
		if string(record.Key) == "alice" {
			alicePeriods = append(alicePeriods, msg.Topics[2])
		}
	}
	s.Equal(map[string]int{"alice": 2, "bob": 1}, perUser)
	s.Equal([]string{"2024", "2025"}, alicePeriods, "one recipient's wraps stay in commit order")
}

// consume reads n records from the start of the test topic.
func (s *KafkaSinkSuite) consume(n int) []*kgo.Record {
	s.T().Helper()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var records []*kgo.Record
	for len(records) < n {
		fetches := consumer.PollFetches(ctx)
		for _, fetchErr := range fetches.Errors() {
			s.Require().NoError(fetchErr.Err, "fetch %s/%d", fetchErr.Topic, fetchErr.Partition)
		}
		records = append(records, fetches.Records()...)
	}
	return records
}
