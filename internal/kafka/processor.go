// Package kafka runs the background worker that serves enrichment requests arriving
// on a Kafka topic.
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ortelius/cve-triage/events/modules/enrichment"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

// ProcessorConfig holds the reader settings
type ProcessorConfig struct {
	Brokers   []string
	Topic     string
	GroupID   string
	APIKey    string
	APISecret string
}

// NewDialer builds a dialer; SASL/PLAIN over TLS when credentials are given
func NewDialer(cfg ProcessorConfig) *kafka.Dialer {
	if cfg.APIKey != "" && cfg.APISecret != "" {
		return &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
			SASLMechanism: plain.Mechanism{
				Username: cfg.APIKey,
				Password: cfg.APISecret,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}
	return &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
}

// RunEventProcessor checks broker reachability and then consumes enrichment.requested
// events in the background until ctx is cancelled
func RunEventProcessor(ctx context.Context, cfg ProcessorConfig, provider enrichment.Provider, publisher enrichment.Publisher, logger *zap.Logger) error {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return errors.New("kafka brokers and request topic are required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "cve-triage-worker"
	}

	dialer := NewDialer(cfg)

	var err error
	for i := 1; i <= 3; i++ {
		logger.Info("Kafka connection attempt", zap.Int("attempt", i), zap.String("broker", cfg.Brokers[0]))
		var conn *kafka.Conn
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err == nil {
			conn.Close()
			break
		}
		if i < 3 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("kafka unreachable: %w", err)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	go func() {
		defer reader.Close()
		logger.Info("Kafka event processor started", zap.String("topic", cfg.Topic))
		consume(ctx, reader, provider, publisher, newReadBackOff(), logger)
	}()

	return nil
}

// messageReader is the part of *kafka.Reader the consumer loop needs
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

func newReadBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// consume handles messages until ctx is cancelled. Read failures wait on bo before the
// next attempt; a successful read resets it.
func consume(ctx context.Context, reader messageReader, provider enrichment.Provider, publisher enrichment.Publisher, bo backoff.BackOff, logger *zap.Logger) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				wait = 30 * time.Second
			}
			logger.Warn("Kafka read failed", zap.Duration("wait", wait), zap.Error(err))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		bo.Reset()

		if err := enrichment.HandleRequested(ctx, msg.Value, provider, publisher, logger); err != nil {
			logger.Error("Failed to handle enrichment request", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}
