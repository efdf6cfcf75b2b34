// Package kafka publishes order events relayed from the outbox.
package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer sends order events. Messages carry their own topic and are keyed by
// order id, so the hash balancer keeps one order's events on one partition.
type Writer struct {
	log *slog.Logger
	*kafka.Writer
}

func NewWriter(log *slog.Logger, brokers []string) *Writer {
	return &Writer{
		log: log,
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (w *Writer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := w.Writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.log.Debug("order events published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	stats := w.Stats()
	w.log.Info("order event writer closing", "messages", stats.Messages, "errors", stats.Errors)
	return w.Writer.Close()
}
