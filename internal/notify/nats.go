package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InstallTracePropagator registers W3C trace context and baggage as the
// global propagator. Without it otel injects nothing into message headers.
func InstallTracePropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSNotifier publishes the summary JSON on a subject
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

// NewNATSNotifier creates a NATS transport on an open connection
func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	return &NATSNotifier{conn: conn, subject: subject}
}

// Name implements Notifier
func (n *NATSNotifier) Name() string { return "nats" }

// Notify implements Notifier. Trace context from ctx is injected into the headers.
func (n *NATSNotifier) Notify(ctx context.Context, s *Summary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	msg := &nats.Msg{
		Subject: n.subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set("Carwatch-Date", s.Date)
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return n.conn.FlushWithContext(ctx)
}
