// Package kafka wraps the franz-go client with the small surface the
// event sink needs: connect, ensure the topic, produce synchronously.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Client wraps a franz-go producer bound to one topic.
type Client struct {
	kcl   *kgo.Client
	topic string
}

// New connects to the brokers and verifies the connection. Returns nil
// if no brokers are configured (event delivery falls back to logging).
func New(brokers []string, topic, clientID string) (*Client, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	kcl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := kcl.Ping(context.Background()); err != nil {
		kcl.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Client{kcl: kcl, topic: topic}, nil
}

// EnsureTopic creates the produce topic if the broker does not have it.
// An already-existing topic is not an error.
func (c *Client) EnsureTopic(ctx context.Context, partitions int32) error {
	adm := kadm.NewClient(c.kcl)
	resp, err := adm.CreateTopics(ctx, partitions, -1, nil, c.topic)
	if err != nil {
		return fmt.Errorf("create topic %q: %w", c.topic, err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %q: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// ProduceSync writes records and waits for broker acknowledgement.
func (c *Client) ProduceSync(ctx context.Context, records ...*kgo.Record) error {
	return c.kcl.ProduceSync(ctx, records...).FirstErr()
}

// Health verifies broker reachability.
func (c *Client) Health(ctx context.Context) error {
	return c.kcl.Ping(ctx)
}

// Close flushes and releases the client.
func (c *Client) Close() {
	c.kcl.Close()
}
