package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ryosukesatoh/paint-news/internal/config"
	"github.com/ryosukesatoh/paint-news/internal/logger"
	"github.com/ryosukesatoh/paint-news/internal/retry"
)

// DefaultSendGridURL is the SendGrid API root.
const DefaultSendGridURL = "https://api.sendgrid.com"

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridMail struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

// SendGridPublisher mails the notification through the SendGrid v3 API.
type SendGridPublisher struct {
	client      *resty.Client
	from        sendGridAddress
	to          []string
	retryConfig retry.Config
	log         logger.Logger
}

// NewSendGridPublisher requires an API key, a sender and at least one
// recipient.
func NewSendGridPublisher(cfg config.SendGridConfig, log logger.Logger) (*SendGridPublisher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, missing("sendgrid", "api_key")
	}
	if cfg.From == "" {
		return nil, missing("sendgrid", "from")
	}
	if len(cfg.To) == 0 {
		return nil, missing("sendgrid", "to")
	}
	if log == nil {
		log = logger.NewNop()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultSendGridURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	name := cfg.FromName
	if name == "" {
		name = senderName
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &SendGridPublisher{
		client: client,
		from:   sendGridAddress{Email: cfg.From, Name: name},
		to:     cfg.To,
		retryConfig: retry.Config{
			MaxRetries: 2,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
		},
		log: log,
	}, nil
}

func (p *SendGridPublisher) Name() string { return "sendgrid" }

// Publish sends one message addressed to every recipient.
func (p *SendGridPublisher) Publish(ctx context.Context, n *Notification) error {
	body, err := BuildEmailHTML(n)
	if err != nil {
		return err
	}

	to := make([]sendGridAddress, len(p.to))
	for i, addr := range p.to {
		to[i] = sendGridAddress{Email: addr}
	}
	mail := sendGridMail{
		Personalizations: []sendGridPersonalization{{To: to}},
		From:             p.from,
		Subject:          Subject(n),
		Content:          []sendGridContent{{Type: "text/html", Value: body}},
	}

	var status int
	err = retry.WithBackoff(ctx, p.retryConfig, func(ctx context.Context) error {
		resp, err := p.client.R().
			SetContext(ctx).
			SetBody(mail).
			Post("/v3/mail/send")
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		switch resp.StatusCode() {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			status = resp.StatusCode()
			return nil
		}
		return &retry.StatusError{StatusCode: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	})
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}

	p.log.Info("Email sent",
		logger.Strings("to", p.to),
		logger.Int("status", status),
	)
	return nil
}
