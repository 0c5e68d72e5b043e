package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryosukesatoh/paint-news/internal/article"
	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/logger"
)

// Notification is what every publisher announces: the articles of one issue
// and where its report can be read.
type Notification struct {
	Articles  []*article.Article
	ReportURL string
	IndexURL  string
	IssueDate string
}

// Publisher announces a finished report on some channel.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, n *Notification) error
}

// ErrMissingSetting is returned when a publisher lacks a required setting.
var ErrMissingSetting = errors.New("publisher: required setting missing")

// ErrUnsupportedPublisherType is returned for unknown publisher names.
var ErrUnsupportedPublisherType = errors.New("unsupported publisher type")

func missing(publisher, setting string) error {
	return fmt.Errorf("%w: %s.%s", ErrMissingSetting, publisher, setting)
}

// New creates the publisher called name from the configuration.
func New(name string, cfg *config.Config, log logger.Logger) (Publisher, error) {
	pc := cfg.Publisher
	switch name {
	case "stdout":
		return NewStdoutPublisher(), nil
	case "email":
		e := pc.Email
		if e.SMTPHost == "" {
			return nil, missing("email", "smtp_host")
		}
		if e.From == "" {
			return nil, missing("email", "from")
		}
		if len(e.To) == 0 {
			return nil, missing("email", "to")
		}
		return NewEmailPublisher(e.SMTPHost, e.SMTPPort, e.Username, e.Password, e.From, e.To), nil
	case "sendgrid":
		return NewSendGridPublisher(pc.SendGrid, log)
	case "discord":
		if pc.Discord.WebhookURL == "" {
			return nil, missing("discord", "webhook_url")
		}
		return NewDiscordPublisher(pc.Discord.WebhookURL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPublisherType, name)
	}
}

// NewAll builds every configured publisher. Publishers that cannot be built
// are left out and their errors joined, so the others can still be used.
func NewAll(cfg *config.Config, log logger.Logger) ([]Publisher, error) {
	var (
		pubs []Publisher
		errs []error
	)
	for _, name := range cfg.Publisher.Types {
		p, err := New(name, cfg, log)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pubs = append(pubs, p)
	}
	return pubs, errors.Join(errs...)
}
