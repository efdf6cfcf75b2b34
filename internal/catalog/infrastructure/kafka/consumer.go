package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	orderdom "github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/outbox"
	"github.com/dmehra2102/storefront/pkg/tracing"
)

// SalesRecorder applies all purchase counter deltas of one event, or none.
type SalesRecorder interface {
	RecordSales(ctx context.Context, deltas map[int64]int) error
}

type Deduper interface {
	Key(parts ...any) string
	Seen(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer keeps product purchase counters in step with order events.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	sales  SalesRecorder
	dedup  Deduper
	tracer trace.Tracer

	newBackOff func() backoff.BackOff
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, sales SalesRecorder, dedup Deduper) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		sales:  sales,
		dedup:  dedup,
		tracer: otel.Tracer("catalog-consumer"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run processes messages in partition order. A message that fails is retried
// until it applies or ctx ends; committing a later offset would acknowledge
// it too.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}
		if err := c.apply(ctx, msg); err != nil {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) apply(ctx context.Context, msg kafka.Message) error {
	return backoff.RetryNotify(
		func() error { return c.Handle(ctx, msg) },
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			c.log.Error("order event not applied, retrying",
				"partition", msg.Partition, "offset", msg.Offset, "in", wait, "err", err)
		},
	)
}

// Handle applies one order event at most once per event id. Malformed and
// unknown events are logged and acknowledged.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	eventType := tracing.HeaderValue(msg.Headers, outbox.HeaderEventType)
	eventID := tracing.HeaderValue(msg.Headers, outbox.HeaderEventID)
	if eventID == "" {
		eventID = fmt.Sprintf("%d-%d", msg.Partition, msg.Offset)
	}

	key := c.dedup.Key(msg.Topic, eventID)
	seen, err := c.dedup.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if seen {
		c.log.Info("duplicate event skipped", "key", key)
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType,
		trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	deltas, err := c.deltas(eventType, msg.Value)
	if err != nil {
		c.log.Error("unreadable order event", "type", eventType, "event_id", eventID, "err", err)
		return nil
	}

	if err := c.sales.RecordSales(msgCtx, deltas); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record sales")
		if rerr := c.dedup.Release(ctx, key); rerr != nil {
			c.log.Warn("release claim failed", "key", key, "err", rerr)
		}
		return fmt.Errorf("record sales: %w", err)
	}
	c.log.Info("order event applied", "type", eventType, "event_id", eventID, "products", len(deltas))
	return nil
}

func (c *Consumer) deltas(eventType string, payload []byte) (map[int64]int, error) {
	switch eventType {
	case orderdom.EventOrderPlaced:
		var ev orderdom.OrderPlaced
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		return sumItems(ev.Items, 1), nil
	case orderdom.EventOrderStatusChanged:
		var ev orderdom.OrderStatusChanged
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, err
		}
		if ev.To != orderdom.StatusCancelled {
			return nil, nil
		}
		return sumItems(ev.Items, -1), nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

func sumItems(items []orderdom.EventItem, sign int) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, it := range items {
		out[it.ProductID] += sign * it.Quantity
	}
	return out
}
