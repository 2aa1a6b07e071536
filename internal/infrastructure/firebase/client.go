// Package firebase delivers push notifications through Firebase Cloud
// Messaging.
package firebase

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

const fcmBatchLimit = 500

// Client implements notification.Messenger using FCM.
type Client struct {
	msgClient *messaging.Client
}

// NewClient initializes a Firebase app from a credentials file.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient}, nil
}

// Send delivers one message to the given device tokens, batched under the
// FCM multicast limit. Partial delivery failures are logged, not returned.
func (c *Client) Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	for start := 0; start < len(tokens); start += fcmBatchLimit {
		end := start + fcmBatchLimit
		if end > len(tokens) {
			end = len(tokens)
		}

		msg := &messaging.MulticastMessage{
			Tokens: tokens[start:end],
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}

		resp, err := c.msgClient.SendEachForMulticast(ctx, msg)
		if err != nil {
			return fmt.Errorf("failed to send FCM multicast: %w", err)
		}
		if resp.FailureCount > 0 {
			log.Printf("FCM: %d/%d sends failed in batch", resp.FailureCount, end-start)
		}
	}
	return nil
}
