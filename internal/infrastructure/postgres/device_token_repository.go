package postgres

import (
	"context"
	"fmt"

	"tern/internal/domain/notification"
)

// DeviceTokenRepository implements notification.Repository.
type DeviceTokenRepository struct {
	db *DB
}

var _ notification.Repository = (*DeviceTokenRepository)(nil)

func NewDeviceTokenRepository(db *DB) *DeviceTokenRepository {
	return &DeviceTokenRepository{db: db}
}

func (r *DeviceTokenRepository) ListDeviceTokens(ctx context.Context, userID int64) ([]string, error) {
	query := `SELECT token FROM device_tokens WHERE user_id = $1 AND active`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
