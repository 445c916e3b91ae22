// Package pubsub wraps the Pub/Sub v2 client with the project's topic and
// subscription naming.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/gcp"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

type Client struct {
	ps      *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

// NewClient connects and refuses to start when a configured subscription is
// missing; subscriptions are provisioned outside the service.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	ps, err := pubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{ps: ps, project: project, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", project), "pubsub.connected")
	}
	return c, nil
}

// Ping checks that every configured subscription exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errors.New("pubsub client not initialized")
	}
	subs := c.subscriptions()
	if len(subs) == 0 {
		return errors.New("pubsub subscription name is required")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range subs {
		g.Go(func() error {
			_, err := c.ps.SubscriptionAdminClient.GetSubscription(gctx, &pubsubpb.GetSubscriptionRequest{
				Subscription: qualify(c.project, kindSubscription, name),
			})
			switch {
			case status.Code(err) == codes.NotFound:
				return fmt.Errorf("subscription %q does not exist", name)
			case err != nil:
				return fmt.Errorf("checking subscription %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Client) subscriptions() []string {
	var out []string
	for _, name := range []string{c.cfg.NotificationSubscription, c.cfg.AnalyticsSubscription} {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Subscriber accepts a short id or a full resource name. It returns nil for a
// blank name.
func (c *Client) Subscriber(name string) *pubsub.Subscriber {
	if c == nil || c.ps == nil {
		return nil
	}
	full := qualify(c.project, kindSubscription, name)
	if full == "" {
		return nil
	}
	return c.ps.Subscriber(full)
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.NotificationSubscription)
}

func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.AnalyticsSubscription)
}

// Publisher accepts a short topic id or a full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	full := qualify(c.project, kindTopic, topic)
	if full == "" {
		return nil
	}
	return c.ps.Publisher(full)
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// qualify expands id to projects/<project>/<kind>/<id>. Names that are
// already qualified pass through.
func qualify(project, kind, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+kind+"/") {
		return id
	}
	if project = strings.TrimSpace(project); project == "" {
		return ""
	}
	return path.Join("projects", project, kind, id)
}
