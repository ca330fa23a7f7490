package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/gestion-ambientes/ambientes-backend/pkg/config"
	"github.com/gestion-ambientes/ambientes-backend/pkg/logger"
)

// Role selects which Pub/Sub resources a process depends on.
type Role int

const (
	RolePublisher Role = iota + 1
	RoleSubscriber
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role
	emulator  bool
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub check events topic is required")
	errNoSubscription    = errors.New("pubsub notification subscription is required")
)

// NewClient creates a Pub/Sub v2 client and verifies the resources the role
// needs. Against the emulator missing resources are created.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: gcp.ProjectID,
		cfg:       cfg,
		role:      role,
		emulator:  strings.TrimSpace(gcp.PubSubEmulatorHost) != "",
	}

	if err := c.ensureConfigured(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":        cfg.CheckEventsTopic,
			"subscription": cfg.NotificationSubscription,
			"emulator":     c.emulator,
		}), "pubsub client initialized")
	}

	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if host := strings.TrimSpace(gcp.PubSubEmulatorHost); host != "" {
		return []option.ClientOption{
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}
	}
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func (c *Client) ensureConfigured(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.CheckEventsTopic) == "" {
		return errTopicRequired
	}
	if err := c.ensureTopicExists(ctx, c.cfg.CheckEventsTopic); err != nil {
		return err
	}
	if c.role != RoleSubscriber {
		return nil
	}
	if strings.TrimSpace(c.cfg.NotificationSubscription) == "" {
		return errNoSubscription
	}
	return c.ensureSubscriptionExists(ctx, c.cfg.NotificationSubscription, c.cfg.CheckEventsTopic)
}

func (c *Client) ensureTopicExists(ctx context.Context, name string) error {
	fullName := c.topicResourceName(name)
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("checking topic %q: %w", name, err)
	}
	if !c.emulator {
		return fmt.Errorf("topic %q does not exist", name)
	}
	if _, err := c.client.TopicAdminClient.CreateTopic(ctx, &pubsubpb.Topic{Name: fullName}); err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("creating topic %q: %w", name, err)
	}
	return nil
}

func (c *Client) ensureSubscriptionExists(ctx context.Context, name, topic string) error {
	fullName := c.subscriptionResourceName(name)
	_, err := c.client.SubscriptionAdminClient.GetSubscription(
		ctx,
		&pubsubpb.GetSubscriptionRequest{Subscription: fullName},
	)
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		return fmt.Errorf("checking subscription %q: %w", name, err)
	}
	if !c.emulator {
		return fmt.Errorf("subscription %q does not exist", name)
	}
	_, err = c.client.SubscriptionAdminClient.CreateSubscription(ctx, &pubsubpb.Subscription{
		Name:               fullName,
		Topic:              c.topicResourceName(topic),
		AckDeadlineSeconds: 30,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return fmt.Errorf("creating subscription %q: %w", name, err)
	}
	return nil
}

// Subscription returns a Subscriber handle for a subscription ID or full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.subscriptionResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Subscriber(fullName)
}

// NotificationSubscription returns the subscriber feeding the notification worker.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationSubscription)
}

// Publisher returns a publisher handle for the given topic ID/resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Publisher(fullName)
}

// Ping verifies connectivity by re-checking the configured resources.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.ensureConfigured(ctx)
}

// Close releases the Pub/Sub client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	return resourceName(c.projectID, "subscriptions", name)
}

func (c *Client) topicResourceName(name string) string {
	return resourceName(c.projectID, "topics", name)
}

func resourceName(projectID, kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", p, kind, n)
}
