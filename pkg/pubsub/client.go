// Package pubsub wraps the Pub/Sub v2 client with the topic and subscription
// names from config. Resources are never created here; they are provisioned
// with the infrastructure and only checked at start-up.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub orders topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects and fails unless the orders topic already exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.OrdersTopic) == "" {
		return nil, errNoTopic
	}
	conn, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	c := &Client{client: conn, projectID: projectID, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": projectID,
			"topic":   cfg.OrdersTopic,
		}), "pubsub client initialized")
	}
	return c, nil
}

// OrdersPublisher publishes order, payment and inventory events.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	name := c.resource(kindTopic, c.configured().OrdersTopic)
	if name == "" {
		return nil
	}
	return c.client.Publisher(name)
}

// NotificationSubscription feeds the notification inbox consumer.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	name := c.resource(kindSubscription, c.configured().NotificationSubscription)
	if name == "" {
		return nil
	}
	return c.client.Subscriber(name)
}

// Ping checks that the orders topic is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.exists(ctx, kindTopic, c.cfg.OrdersTopic, func(name string) error {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		return err
	})
}

// EnsureSubscription fails when the named subscription does not exist.
func (c *Client) EnsureSubscription(ctx context.Context, name string) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	return c.exists(ctx, kindSubscription, name, func(full string) error {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		return err
	})
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) exists(ctx context.Context, kind, name string, get func(full string) error) error {
	full := resourceName(c.projectID, kind, name)
	if full == "" {
		return fmt.Errorf("%s %q not configured", strings.TrimSuffix(kind, "s"), name)
	}
	err := get(full)
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s does not exist", full)
	default:
		return fmt.Errorf("check %s: %w", full, err)
	}
}

func (c *Client) configured() config.PubSubConfig {
	if c == nil {
		return config.PubSubConfig{}
	}
	return c.cfg
}

func (c *Client) resource(kind, name string) string {
	if c == nil || c.client == nil {
		return ""
	}
	return resourceName(c.projectID, kind, name)
}

func TopicResourceName(projectID, name string) string {
	return resourceName(projectID, kindTopic, name)
}

func SubscriptionResourceName(projectID, name string) string {
	return resourceName(projectID, kindSubscription, name)
}

// resourceName expands a bare id to projects/<p>/<kind>/<id>. A full path of
// the same kind is returned unchanged.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
