// Package dispatch hands accepted job requests to the external queue.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"encodegate/internal/admission"
	"encodegate/internal/logging"
	"encodegate/internal/metrics"
	"encodegate/internal/services"
)

// Envelope is the message published for every accepted request.
type Envelope struct {
	ID         string               `json:"id"`
	AcceptedAt time.Time            `json:"acceptedAt"`
	RequestID  string               `json:"requestId,omitempty"`
	Request    admission.JobRequest `json:"request"`
}

// Receipt identifies a published envelope.
type Receipt struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// Publisher forwards accepted requests.
type Publisher interface {
	Publish(ctx context.Context, req admission.JobRequest) (Receipt, error)
	Close() error
}

// NewEnvelope stamps req with a fresh id and applies option defaults.
func NewEnvelope(ctx context.Context, req admission.JobRequest, now time.Time) Envelope {
	if req.OutputOptions != nil {
		opts := req.OutputOptions.WithDefaults()
		req.OutputOptions = &opts
	}
	env := Envelope{ID: uuid.NewString(), AcceptedAt: now.UTC(), Request: req}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		env.RequestID = rid
	}
	return env
}

// Disabled rejects every publish with services.ErrDispatchOffline.
type Disabled struct{}

func (Disabled) Publish(context.Context, admission.JobRequest) (Receipt, error) {
	return Receipt{}, services.Wrap(services.ErrDispatchOffline, "dispatch", "publish", "dispatch is disabled", nil)
}

func (Disabled) Close() error { return nil }

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures a KafkaPublisher.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	Logger       *slog.Logger
}

// KafkaPublisher writes envelopes as JSON to a Kafka topic keyed by id.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewKafkaPublisher builds a publisher. Brokers are not contacted until the
// first publish.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, fmt.Errorf("dispatch: at least one broker is required")
	}
	if strings.TrimSpace(opts.Topic) == "" {
		return nil, fmt.Errorf("dispatch: topic is required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		WriteTimeout:           opts.WriteTimeout,
	}
	return newKafkaPublisher(writer, opts), nil
}

func newKafkaPublisher(writer messageWriter, opts KafkaOptions) *KafkaPublisher {
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KafkaPublisher{
		writer:  writer,
		topic:   opts.Topic,
		timeout: timeout,
		logger:  logging.NewComponentLogger(opts.Logger, "dispatch"),
		now:     time.Now,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, req admission.JobRequest) (Receipt, error) {
	env := NewEnvelope(ctx, req, p.now())
	payload, err := json.Marshal(env)
	if err != nil {
		return Receipt{}, fmt.Errorf("dispatch: encode envelope: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(env.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		metrics.DispatchPublished.WithLabelValues("failed").Inc()
		logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "job publish failed", "dispatch_failed",
			logging.String("topic", p.topic),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check broker reachability"))
		return Receipt{}, services.Wrap(services.ErrDispatchOffline, "dispatch", "publish", p.topic, err)
	}
	metrics.DispatchPublished.WithLabelValues("ok").Inc()
	logging.WithContext(ctx, p.logger).Info("job published",
		logging.String("job_id", env.ID),
		logging.String("topic", p.topic))
	return Receipt{ID: env.ID, Topic: p.topic}, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Ping succeeds once any broker accepts a connection.
func Ping(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return services.Wrap(services.ErrDispatchOffline, "dispatch", "ping", "", lastErr)
}
