// v1
// internal/ingest/kafka.go
package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig groups the settings for the gateway relay topic. Gateways that
// cannot reach the MQTT broker publish raw readings to Kafka instead; the
// message key carries the source sensor topic, the value the raw payload.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaConsumer runs a background reader feeding the coordinator.
type KafkaConsumer struct {
	reader *kafka.Reader
	coord  *Coordinator
	log    *slog.Logger
	wg     sync.WaitGroup
}

// StartKafka wires a reader for the relay topic and begins ingestion. The
// consumer stops when ctx is cancelled.
func StartKafka(ctx context.Context, cfg KafkaConfig, coord *Coordinator, logger *slog.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	c := &KafkaConsumer{
		reader: reader,
		coord:  coord,
		log:    logger.With(slog.String("component", "kafka"), slog.String("topic", cfg.Topic)),
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	return c
}

func (c *KafkaConsumer) run(ctx context.Context) {
	c.log.Info("consuming")
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.log.Error("read failed", slog.Any("error", err))
			continue
		}
		topic := string(msg.Key)
		c.coord.HandleMessage(ctx, "kafka", topic, msg.Value)
	}
}

// Close stops the reader and waits for the consume loop to exit.
func (c *KafkaConsumer) Close() error {
	err := c.reader.Close()
	c.wg.Wait()
	return err
}
