package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultConnectTimeout = 10 * time.Second

var tracer = otel.Tracer("location-service/nats-publisher")

// Publisher sends location and share events as JSON. The caller's trace
// context travels in the message headers so consumers can continue the trace.
type Publisher struct {
	conn   *nats.Conn
	logger *logger.Logger
}

func NewPublisher(cfg config.NATSConfig, log *logger.Logger, appName string) (*Publisher, error) {
	log = log.Named("NATSPublisher")

	conn, err := nats.Connect(cfg.URL, connectOptions(cfg, log, appName)...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", cfg.URL, err)
	}
	log.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return &Publisher{conn: conn, logger: log}, nil
}

func connectOptions(cfg config.NATSConfig, log *logger.Logger, appName string) []nats.Option {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	return []nats.Option{
		nats.Name(appName + " publisher"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("Lost NATS connection", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("Async NATS error", zap.Error(err))
		}),
	}
}

// Publish never blocks on the server; delivery is fire-and-forget.
func (p *Publisher) Publish(ctx context.Context, subject string, data interface{}) error {
	ctx, span := tracer.Start(ctx, subject+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
		))
	defer span.End()

	msg, err := newMessage(ctx, subject, data)
	if err == nil {
		err = p.conn.PublishMsg(msg)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		p.logger.Error("Event not published", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	span.SetAttributes(attribute.Int("messaging.message.body.size", len(msg.Data)))
	p.logger.Debug("Event published", zap.String("subject", subject))
	return nil
}

func newMessage(ctx context.Context, subject string, data interface{}) (*nats.Msg, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	// nats.Header shares http.Header's representation
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
	return msg, nil
}

// Close flushes pending messages before closing the connection.
func (p *Publisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("NATS drain failed, closing", zap.Error(err))
		p.conn.Close()
	}
}

// NoopPublisher drops events. It is used when NATS is disabled or unreachable.
type NoopPublisher struct {
	logger *logger.Logger
}

func NewNoopPublisher(log *logger.Logger) *NoopPublisher {
	return &NoopPublisher{logger: log.Named("NoopPublisher")}
}

func (p *NoopPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.logger.Debug("Event dropped, NATS disabled", zap.String("subject", subject))
	return nil
}
