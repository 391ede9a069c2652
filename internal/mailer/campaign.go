// Package mailer talks to the email-campaign provider and renders the
// digest HTML.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/davet/jobdigest/internal/logger"
)

// CampaignSender sends one HTML campaign and returns the provider's
// campaign identifier.
type CampaignSender interface {
	Send(ctx context.Context, subject, html string) (string, error)
}

// Notifier delivers best-effort operator notifications. Implementations
// must never let a notification failure propagate.
type Notifier interface {
	NotifyFailure(ctx context.Context, subject, message string)
}

// Config holds campaign provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	ListID     string
	FromName   string
	FromEmail  string
	ReplyTo    string
	AlertEmail string
	Timeout    time.Duration
}

// Client implements CampaignSender and Notifier against a
// Mailchimp-compatible campaign API.
type Client struct {
	http      *resty.Client
	listID    string
	fromName  string
	fromEmail string
	replyTo   string
	alertTo   string
	logger    *logger.Logger
}

// NewClient creates a campaign API client.
func NewClient(cfg *Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.GetDefault()
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	replyTo := cfg.ReplyTo
	if replyTo == "" {
		replyTo = cfg.FromEmail
	}

	return &Client{
		http:      client,
		listID:    cfg.ListID,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		replyTo:   replyTo,
		alertTo:   cfg.AlertEmail,
		logger:    log.WithField(logger.FieldComponent, "mailer"),
	}
}

// Campaign API request/response structures.
type createCampaignRequest struct {
	Type       string           `json:"type"`
	Recipients campaignAudience `json:"recipients"`
	Settings   campaignSettings `json:"settings"`
}

type campaignAudience struct {
	ListID string `json:"list_id"`
}

type campaignSettings struct {
	SubjectLine string `json:"subject_line"`
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
}

type campaignResponse struct {
	ID string `json:"id"`
}

type setContentRequest struct {
	HTML string `json:"html"`
}

type sendMessageRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send creates a campaign, uploads its content and triggers the send.
// Returns the provider campaign id. Any non-2xx response fails the send;
// nothing is retried here because the next cycle re-selects the same
// pending batch.
func (c *Client) Send(ctx context.Context, subject, html string) (string, error) {
	var created campaignResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&createCampaignRequest{
			Type:       "regular",
			Recipients: campaignAudience{ListID: c.listID},
			Settings: campaignSettings{
				SubjectLine: subject,
				FromName:    c.fromName,
				ReplyTo:     c.replyTo,
			},
		}).
		SetResult(&created).
		Post("/campaigns")
	if err != nil {
		return "", fmt.Errorf("failed to create campaign: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("campaign create returned status %d: %s", resp.StatusCode(), resp.String())
	}
	if created.ID == "" {
		return "", fmt.Errorf("campaign create returned no id")
	}

	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(&setContentRequest{HTML: html}).
		Put("/campaigns/" + created.ID + "/content")
	if err != nil {
		return "", fmt.Errorf("failed to set campaign content: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("campaign content returned status %d: %s", resp.StatusCode(), resp.String())
	}

	resp, err = c.http.R().
		SetContext(ctx).
		Post("/campaigns/" + created.ID + "/actions/send")
	if err != nil {
		return "", fmt.Errorf("failed to send campaign: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("campaign send returned status %d: %s", resp.StatusCode(), resp.String())
	}

	c.logger.WithField(logger.FieldCampaignID, created.ID).Info("Campaign sent")
	return created.ID, nil
}

// NotifyFailure sends a plain-text alert to the operator address through
// the provider's single-message endpoint. Failures are logged and
// swallowed: a broken alert channel must not mask the original error.
func (c *Client) NotifyFailure(ctx context.Context, subject, message string) {
	if c.alertTo == "" {
		return
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&sendMessageRequest{
			To:      c.alertTo,
			From:    c.fromEmail,
			Subject: subject,
			Text:    message,
		}).
		Post("/messages")
	if err != nil {
		c.logger.WithError(err).Error("Failed to send failure notification")
		return
	}
	if resp.IsError() {
		c.logger.WithField("status", resp.StatusCode()).Error("Failure notification rejected by provider")
	}
}
