// Package resend sends RFP emails through Resend and fetches received
// vendor replies.
package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	sdk "github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/mailbox"
)

const (
	apiURL = "https://api.resend.com"
	// DefaultFrom is the sandbox sender every Resend account may use.
	DefaultFrom = "onboarding@resend.dev"
)

type Client struct {
	token      string
	from       string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(token, from string, log *zap.Logger) *Client {
	if from = strings.TrimSpace(from); from == "" {
		from = DefaultFrom
	}
	return &Client{
		token:  token,
		from:   from,
		logger: logger.OrNop(log),
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Send delivers a plain text email and returns the provider message id.
func (c *Client) Send(ctx context.Context, to, subject, body string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", errors.New("recipient is required")
	}

	client, err := c.sdkClient()
	if err != nil {
		return "", err
	}

	c.logger.Debug("send email", zap.String(logger.FieldVendorEmail, to), zap.String("subject", subject))
	sent, err := client.Emails.SendWithContext(ctx, &sdk.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
		Html:    strings.ReplaceAll(htmlEscape(body), "\n", "<br>"),
	})
	if err != nil {
		return "", fmt.Errorf("resend send: %w", err)
	}

	c.logger.Info("email sent", zap.String(logger.FieldVendorEmail, to), zap.String("message_id", sent.Id))
	return sent.Id, nil
}

// GetEmail fetches an email including its body.
func (c *Client) GetEmail(ctx context.Context, id string) (mailbox.Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return mailbox.Message{}, errors.New("email id is required")
	}

	client, err := c.sdkClient()
	if err != nil {
		return mailbox.Message{}, err
	}

	c.logger.Debug("fetch email", zap.String("email_id", id))
	email, err := client.Emails.GetWithContext(ctx, id)
	if err != nil {
		return mailbox.Message{}, fmt.Errorf("resend get email %s: %w", id, err)
	}

	return mailbox.Message{
		EmailID: email.Id,
		From:    email.From,
		Subject: email.Subject,
		Text:    email.Text,
		HTML:    email.Html,
	}, nil
}

// sdkClient builds an SDK client over the current APIURL and HTTPClient.
func (c *Client) sdkClient() (*sdk.Client, error) {
	base, err := url.Parse(strings.TrimRight(c.APIURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("resend api url: %w", err)
	}

	client := sdk.NewCustomClient(c.HTTPClient, c.token)
	client.BaseURL = base
	return client, nil
}

var htmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func htmlEscape(s string) string {
	return htmlReplacer.Replace(s)
}
