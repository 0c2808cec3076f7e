package telemetry

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// headerCarrier adapts kafka message headers to propagation.TextMapCarrier.
// Keys match case-insensitively; Set replaces an existing key in place.
type headerCarrier []kafka.Header

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func (c *headerCarrier) index(key string) int {
	for i, h := range *c {
		if strings.EqualFold(h.Key, key) {
			return i
		}
	}
	return -1
}

func (c *headerCarrier) Get(key string) string {
	if i := c.index(key); i >= 0 {
		return string((*c)[i].Value)
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	if i := c.index(key); i >= 0 {
		(*c)[i].Value = []byte(value)
		return
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}

// InjectKafkaHeaders writes the span context of ctx into headers.
func InjectKafkaHeaders(ctx context.Context, headers *[]kafka.Header) {
	injectWith(otel.GetTextMapPropagator(), ctx, headers)
}

// ExtractKafkaHeaders returns ctx with the remote span context found in
// headers, if any.
func ExtractKafkaHeaders(ctx context.Context, headers []kafka.Header) context.Context {
	return extractWith(otel.GetTextMapPropagator(), ctx, headers)
}

func injectWith(prop propagation.TextMapPropagator, ctx context.Context, headers *[]kafka.Header) {
	carrier := headerCarrier(*headers)
	prop.Inject(ctx, &carrier)
	*headers = carrier
}

func extractWith(prop propagation.TextMapPropagator, ctx context.Context, headers []kafka.Header) context.Context {
	carrier := headerCarrier(headers)
	return prop.Extract(ctx, &carrier)
}
