package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/platform/logger"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewMessage_CarriesTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	ev := domain.ShareEvent{ShareID: "s1", LocationID: "l1", AccessLevel: domain.AccessFullInfo, ActorID: "u1", OccurredAt: time.Unix(0, 0).UTC()}
	msg, err := newMessage(ctx, domain.SubjectShareCreated, ev)
	require.NoError(t, err)

	assert.Equal(t, domain.SubjectShareCreated, msg.Subject)
	assert.NotEmpty(t, msg.Header.Get("traceparent"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "s1", decoded["share_id"])
	assert.Equal(t, "full_info", decoded["access_level"])
}

func TestConnectOptions_DefaultTimeout(t *testing.T) {
	opts := connectOptions(config.NATSConfig{URL: nats.DefaultURL}, logger.NewNop(), "location-service")

	var o nats.Options
	for _, opt := range opts {
		require.NoError(t, opt(&o))
	}
	assert.Equal(t, defaultConnectTimeout, o.Timeout)
	assert.Equal(t, "location-service publisher", o.Name)
	assert.Equal(t, -1, o.MaxReconnect)
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher(logger.NewNop())
	assert.NoError(t, p.Publish(context.Background(), domain.SubjectLocationCreated, struct{}{}))
}
