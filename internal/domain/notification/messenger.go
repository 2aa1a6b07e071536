package notification

import "context"

// Messenger delivers a push message to a set of device tokens. Implemented
// by the FCM client.
type Messenger interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}
