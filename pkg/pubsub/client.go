// Package pubsub connects to Google Cloud Pub/Sub for the outbox relay and
// the notification mailer.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/casamarket/casa-backend/pkg/config"
	"github.com/casamarket/casa-backend/pkg/logger"
)

var (
	errNoProject = errors.New("gcp project id is required")
	errNoTopics  = errors.New("no pubsub topics configured")
	errNilClient = errors.New("pubsub client not initialized")
)

type Client struct {
	ps      *pubsub.Client
	project string
	topics  []string
	email   string
}

// NewClient dials Pub/Sub and refuses to start unless every configured topic
// already exists. Topics are provisioned out of band.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errNoProject
	}
	ps, err := pubsub.NewClient(ctx, project, credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("dial pubsub: %w", err)
	}

	c := &Client{ps: ps, project: project, topics: topicNames(cfg), email: strings.TrimSpace(cfg.EmailTopic)}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"gcp_project": project, "topics": c.topics}), "pubsub client ready")
	}
	return c, nil
}

// credentials prefers inline JSON over a key file; with neither set the
// client falls back to application default credentials.
func credentials(gcp config.GCPConfig) []option.ClientOption {
	if j := strings.TrimSpace(gcp.CredentialsJSON); j != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(j))}
	}
	if f := strings.TrimSpace(gcp.ApplicationCredentials); f != "" {
		return []option.ClientOption{option.WithCredentialsFile(f)}
	}
	return nil
}

func topicNames(cfg config.PubSubConfig) []string {
	var out []string
	for _, t := range []string{cfg.DomainTopic, cfg.EmailTopic} {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Ping checks that every configured topic exists and reports all missing ones.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errNilClient
	}
	if len(c.topics) == 0 {
		return errNoTopics
	}
	var errs error
	for _, t := range c.topics {
		errs = multierr.Append(errs, c.topicExists(ctx, t))
	}
	return errs
}

func (c *Client) topicExists(ctx context.Context, topic string) error {
	_, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: TopicResourceName(c.project, topic)})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub topic %q does not exist", topic)
	}
	return fmt.Errorf("look up pubsub topic %q: %w", topic, err)
}

// Publisher returns a new batching publisher for topic. Callers own it and
// must Stop it; nil means the client or topic name is unusable.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.ps == nil {
		return nil
	}
	name := TopicResourceName(c.project, topic)
	if name == "" {
		return nil
	}
	return c.ps.Publisher(name)
}

func (c *Client) EmailPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.email)
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// TopicResourceName expands a short topic id to projects/<p>/topics/<id>.
// Full resource names pass through unchanged.
func TopicResourceName(project, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic
	}
	if project = strings.TrimSpace(project); project == "" {
		return ""
	}
	return "projects/" + project + "/topics/" + topic
}
