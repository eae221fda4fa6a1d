package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xela07ax/devpulse/internal/domain"
	"github.com/xela07ax/devpulse/internal/infra"
)

const (
	pollTimeout = 5 * time.Second

	// Пауза после ошибки брокера: удваивается до maxFetchBackoff, сбрасывается первым успешным чтением
	minFetchBackoff = 500 * time.Millisecond
	maxFetchBackoff = 30 * time.Second
)

// Recorder куда складываются принятые события.
type Recorder interface {
	RecordActivity(ctx context.Context, a domain.Activity) (domain.Activity, error)
}

// messageReader то, что нужно от kafka.Reader; в тестах подменяется.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ActivityConsumer читает события активности из топика и дописывает их в журнал.
// Битые сообщения коммитятся и пропускаются, чтобы не застопорить партицию.
type ActivityConsumer struct {
	reader   messageReader
	recorder Recorder
	counter  *prometheus.CounterVec
	logger   *zap.Logger
	topic    string

	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewActivityConsumer(cfg infra.KafkaConfig, rec Recorder, metrics *infra.Metrics, logger *zap.Logger) (*ActivityConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("ingest: at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("ingest: topic must not be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return newConsumer(reader, cfg.Topic, rec, metrics, logger), nil
}

func newConsumer(r messageReader, topic string, rec Recorder, metrics *infra.Metrics, logger *zap.Logger) *ActivityConsumer {
	if metrics == nil {
		metrics = infra.NewMetrics(nil)
	}
	return &ActivityConsumer{
		reader:   r,
		recorder: rec,
		counter:  metrics.IngestedActivities,
		logger:   logger.Named("ingest"),
		topic:    topic,

		minBackoff: minFetchBackoff,
		maxBackoff: maxFetchBackoff,
	}
}

// Run блокируется до отмены контекста или закрытия reader'а.
func (c *ActivityConsumer) Run(ctx context.Context) error {
	c.logger.Info("activity consumer started", zap.String("topic", c.topic))
	defer c.logger.Info("activity consumer stopped")

	backoff := c.minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		fetchCtx, cancel := context.WithTimeout(ctx, pollTimeout)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, kafka.ErrGroupClosed):
				return nil
			}
			c.logger.Error("fetch failed", zap.Duration("backoff", backoff), zap.Error(err))
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}
		backoff = c.minBackoff

		c.handle(ctx, msg)

		commitCtx, commitCancel := context.WithTimeout(ctx, pollTimeout)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		commitCancel()
	}
}

// sleep ждёт d; false, если контекст отменили раньше.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *ActivityConsumer) Close() error {
	return c.reader.Close()
}

func (c *ActivityConsumer) handle(ctx context.Context, msg kafka.Message) {
	a, err := decodeActivity(msg.Value)
	if err == nil {
		a, err = c.recorder.RecordActivity(ctx, a)
	}
	if err != nil {
		c.counter.WithLabelValues("rejected").Inc()
		c.logger.Warn("activity rejected",
			zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
		return
	}
	c.counter.WithLabelValues("accepted").Inc()
	c.logger.Debug("activity ingested", zap.Int64("id", a.ID), zap.Int64("offset", msg.Offset))
}

// activityMessage формат события в топике. ID назначает журнал, timestamp необязателен.
type activityMessage struct {
	Type        string     `json:"type"`
	Project     string     `json:"project"`
	Description string     `json:"description"`
	User        string     `json:"user"`
	Status      string     `json:"status"`
	Timestamp   *time.Time `json:"timestamp"`
}

func decodeActivity(raw []byte) (domain.Activity, error) {
	var m activityMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&m); err != nil {
		return domain.Activity{}, fmt.Errorf("%w: decode activity: %v", domain.ErrInvalidInput, err)
	}
	a := domain.Activity{
		Type:        domain.ActivityType(strings.ToLower(strings.TrimSpace(m.Type))),
		Project:     m.Project,
		Description: strings.TrimSpace(m.Description),
		Actor:       m.User,
		Status:      m.Status,
	}
	if m.Timestamp != nil {
		a.Timestamp = m.Timestamp.UTC()
	}
	return a, nil
}
