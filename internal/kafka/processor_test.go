package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ortelius/cve-triage/events/modules/enrichment"
	"github.com/ortelius/cve-triage/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// scriptedReader replays a fixed sequence of read results, then cancels the loop
type scriptedReader struct {
	results []error
	msg     kafka.Message
	cancel  context.CancelFunc
	reads   int
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.reads >= len(r.results) {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	err := r.results[r.reads]
	r.reads++
	if err != nil {
		return kafka.Message{}, err
	}
	return r.msg, nil
}

// countingBackOff records how often the loop waited and how often it was reset
type countingBackOff struct {
	waits  int
	resets int
}

func (b *countingBackOff) NextBackOff() time.Duration {
	b.waits++
	return time.Millisecond
}

func (b *countingBackOff) Reset() { b.resets++ }

type echoProvider struct{}

func (echoProvider) Enrich(_ context.Context, items []model.Item) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(items))
	for _, it := range items {
		rows = append(rows, model.Row{CveID: it.CveID})
	}
	return rows, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	sessions []string
}

func (p *recordingPublisher) PublishCompleted(_ context.Context, sessionID string, _ []model.Row) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, sessionID)
	return nil
}

func TestNewDialer(t *testing.T) {
	plainDialer := NewDialer(ProcessorConfig{})
	if plainDialer.SASLMechanism != nil || plainDialer.TLS != nil {
		t.Error("expected a plain dialer without credentials")
	}

	secure := NewDialer(ProcessorConfig{APIKey: "k", APISecret: "s"})
	if secure.SASLMechanism == nil || secure.TLS == nil {
		t.Error("expected SASL over TLS with credentials")
	}
	if secure.SASLMechanism.Name() != "PLAIN" {
		t.Errorf("unexpected mechanism %s", secure.SASLMechanism.Name())
	}
}

func TestRunEventProcessorRequiresTopic(t *testing.T) {
	if err := RunEventProcessor(context.Background(), ProcessorConfig{Brokers: []string{"localhost:9092"}}, nil, nil, zap.NewNop()); err == nil {
		t.Error("expected error without topic")
	}
}

func TestConsumeWaitsBetweenFailedReads(t *testing.T) {
	payload, err := json.Marshal(enrichment.RequestedEvent{
		EventType: enrichment.EventRequested,
		RequestID: "req-1",
		Items:     []model.Item{{CveID: "CVE-2021-44228"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokerDown := errors.New("broker unavailable")
	reader := &scriptedReader{
		results: []error{brokerDown, brokerDown, brokerDown, nil},
		msg:     kafka.Message{Value: payload},
		cancel:  cancel,
	}
	bo := &countingBackOff{}
	pub := &recordingPublisher{}

	consume(ctx, reader, echoProvider{}, pub, bo, zap.NewNop())

	if bo.waits != 3 {
		t.Errorf("expected a wait after each of 3 failures, got %d", bo.waits)
	}
	if bo.resets != 1 {
		t.Errorf("expected the backoff to reset after a good read, got %d", bo.resets)
	}
	if len(pub.sessions) != 1 || pub.sessions[0] != "req-1" {
		t.Errorf("unexpected published sessions %v", pub.sessions)
	}
}

func TestConsumeStopsWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &scriptedReader{results: []error{errors.New("down")}, cancel: cancel}

	done := make(chan struct{})
	go func() {
		defer close(done)
		consume(ctx, reader, echoProvider{}, &recordingPublisher{}, backoff.NewConstantBackOff(time.Hour), zap.NewNop())
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop on cancellation")
	}
}
