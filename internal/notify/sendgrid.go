package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendgridChannel delivers notifications over the SendGrid mail API.
type SendgridChannel struct {
	client *sendgrid.Client
	from   *sgmail.Email
}

// NewSendgridChannel constructs the channel with the given API key and sender.
func NewSendgridChannel(apiKey, fromName, fromEmail string) *SendgridChannel {
	return &SendgridChannel{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromEmail),
	}
}

// Deliver sends the message as a plain-text email.
func (c *SendgridChannel) Deliver(ctx context.Context, msg Message) error {
	to := sgmail.NewEmail("", msg.To)
	mail := sgmail.NewSingleEmail(c.from, msg.Subject, to, msg.Body, "")

	resp, err := c.client.SendWithContext(ctx, mail)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
