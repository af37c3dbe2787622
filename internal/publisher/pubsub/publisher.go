// Package pubsub publishes scan notifications to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Publisher wraps a Pub/Sub topic publisher.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    *zap.Logger
}

// New creates a Publisher for an existing topic publisher. Close stops it but
// leaves the client open.
func New(publisher *pubsub.Publisher) *Publisher {
	return &Publisher{publisher: publisher, logger: zap.NewNop()}
}

// Open connects to projectID and verifies that topicID exists and is active.
// The returned Publisher owns the client.
func Open(ctx context.Context, projectID, topicID string, logger *zap.Logger, opts ...option.ClientOption) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	name := fmt.Sprintf("projects/%s/topics/%s", projectID, topicID)
	topic, err := client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	if err != nil {
		closeClient(client, logger)
		return nil, fmt.Errorf("get pubsub topic %q: %w", topicID, err)
	}
	if topic.GetState() != pubsubpb.Topic_ACTIVE && topic.GetState() != pubsubpb.Topic_STATE_UNSPECIFIED {
		closeClient(client, logger)
		return nil, fmt.Errorf("pubsub topic %q in project %q is not active", topicID, projectID)
	}
	return &Publisher{
		client:    client,
		publisher: client.Publisher(topic.GetName()),
		logger:    logger.Named("pubsub"),
	}, nil
}

func closeClient(client *pubsub.Client, logger *zap.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("close pubsub client", zap.Error(err))
	}
}

// Publish marshals the payload to JSON and publishes it with the trace
// context in the message attributes. The topic argument is recorded as an
// attribute; the destination is fixed at construction.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if p.publisher == nil {
		return "", errors.New("pubsub publisher is not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	msg := &pubsub.Message{Data: data, Attributes: map[string]string{}}
	if topic != "" {
		msg.Attributes["event"] = topic
	}
	otel.GetTextMapPropagator().Inject(ctx, &pubsubCarrier{attrs: msg.Attributes})

	result := p.publisher.Publish(ctx, msg)
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client when owned.
func (p *Publisher) Close() error {
	if p.publisher != nil {
		p.publisher.Stop()
	}
	if p.client == nil {
		return nil
	}
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

// pubsubCarrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type pubsubCarrier struct {
	attrs map[string]string
}

func (c *pubsubCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *pubsubCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *pubsubCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
