package settlement

import (
	"context"
	"encoding/binary"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/model"
	"github.com/nomadmarket/nomadledger/settings"
	"github.com/nomadmarket/nomadledger/ulogger"
	"github.com/nomadmarket/nomadledger/util/kafka"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SettlementEvent is emitted once per committed purchase.
type SettlementEvent struct {
	Reference string          `json:"reference"`
	ItemID    int64           `json:"itemId"`
	TokenID   int64           `json:"tokenId"`
	SellerID  int64           `json:"sellerId"`
	BuyerID   int64           `json:"buyerId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	SettledAt time.Time       `json:"settledAt"`
}

func newSettlementEvent(entry *model.LedgerEntry, currency string) *SettlementEvent {
	return &SettlementEvent{
		Reference: entry.Reference,
		ItemID:    entry.ItemID,
		TokenID:   entry.TokenID,
		SellerID:  entry.SellerID,
		BuyerID:   entry.BuyerID,
		Amount:    entry.Amount,
		Currency:  currency,
		SettledAt: entry.CreatedAt,
	}
}

// Publisher hands committed settlements to downstream consumers. It is called after
// the commit, a failure is logged and never undoes the purchase.
type Publisher interface {
	Publish(ctx context.Context, event *SettlementEvent) error
	Close() error
}

// NewPublisher returns a kafka publisher when kafka_settlementsURL is set and a
// publisher that drops events otherwise.
func NewPublisher(logger ulogger.Logger, tSettings *settings.Settings) (Publisher, error) {
	if tSettings.Kafka.SettlementsURL == nil {
		logger.Infof("[Settlement] no kafka_settlementsURL configured, settlement events are not published")
		return NoopPublisher{}, nil
	}

	producer, err := kafka.NewProducer(tSettings.Kafka.SettlementsURL)
	if err != nil {
		return nil, errors.NewServiceError("failed to create settlements producer", err)
	}

	logger.Infof("[Settlement] publishing settlement events to %s", tSettings.Kafka.SettlementsURL.Redacted())

	return NewKafkaPublisher(producer), nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *SettlementEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

type KafkaPublisher struct {
	producer kafka.Producer
}

func NewKafkaPublisher(producer kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys the message by item id so that events of one item stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event *SettlementEvent) error {
	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("settlement event %s not published", event.Reference, err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.NewProcessingError("failed to encode settlement event %s", event.Reference, err)
	}

	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, uint64(event.ItemID))

	return p.producer.Send(key, data)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
