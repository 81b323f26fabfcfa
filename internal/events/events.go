// Package events defines the mint notification record, the sinks that
// deliver it, and the worker that drains the store's outbox. Events are
// staged in the same atomic scope as the mint they announce, so a
// notification exists if and only if its wrap committed.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	id "wrapregistry/pkg/domain"
)

// TopicMint tags every mint notification.
const TopicMint = "mint"

// Event is one issued wrap, announced once.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Instance  id.InstanceID `json:"instance"`
	User      id.AccountID  `json:"user"`
	Period    uint64        `json:"period"`
	Archetype string        `json:"archetype"`
	MintedAt  time.Time     `json:"minted_at"`
}

// Topics returns the notification topics in ledger order: the mint
// tag, the recipient, and the period. The archetype travels as the
// payload, not a topic.
func (e Event) Topics() []string {
	return []string{TopicMint, string(e.User), strconv.FormatUint(e.Period, 10)}
}

// Sink delivers a batch of events to the outside world. Delivery is
// at-least-once; consumers dedupe on Event.ID.
type Sink interface {
	Publish(ctx context.Context, batch []Event) error
}

// Outbox is the staged-event source the worker drains. The registry
// store implements it.
type Outbox interface {
	ListUnpublishedEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventsPublished(ctx context.Context, ids []uuid.UUID) error
}
