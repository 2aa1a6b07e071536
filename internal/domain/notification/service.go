// Package notification sends best-effort push alerts about sync health.
package notification

import (
	"context"
	"fmt"
	"log"
)

// Repository resolves the device tokens registered for a user.
type Repository interface {
	ListDeviceTokens(ctx context.Context, userID int64) ([]string, error)
}

// Service sends sync-related notifications. All sends are best-effort: a
// delivery failure is logged, never returned, so notifications can never
// fail a sync.
type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates a new notification service.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// SendSyncFailed alerts the user that one institution's sync recorded errors.
func (s *Service) SendSyncFailed(ctx context.Context, userID int64, institution, reason string) {
	s.send(ctx, userID,
		"Sync issue",
		fmt.Sprintf("We hit a problem updating your %s data. We'll retry automatically.", institution),
		map[string]string{"type": "sync_failed", "reason": reason},
	)
}

// SendReauthRequired alerts the user that a connection must be relinked.
func (s *Service) SendReauthRequired(ctx context.Context, userID int64, institution string) {
	s.send(ctx, userID,
		"Reconnect your bank",
		fmt.Sprintf("%s needs to be reconnected to keep your data up to date.", institution),
		map[string]string{"type": "reauth_required"},
	)
}

func (s *Service) send(ctx context.Context, userID int64, title, body string, data map[string]string) {
	tokens, err := s.repo.ListDeviceTokens(ctx, userID)
	if err != nil {
		log.Printf("Notification: failed to list device tokens for user %d: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}
	if err := s.messenger.Send(ctx, tokens, title, body, data); err != nil {
		log.Printf("Notification: failed to send %q to user %d: %v", title, userID, err)
	}
}
