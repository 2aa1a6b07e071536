package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"tern/internal/domain/connection"
	"tern/internal/infrastructure/crypto"
)

// ConnectionRepository implements connection.Repository. Access tokens are
// stored encrypted and decrypted on read.
type ConnectionRepository struct {
	db        *DB
	encryptor *crypto.Encryptor
}

var _ connection.Repository = (*ConnectionRepository)(nil)

func NewConnectionRepository(db *DB, encryptor *crypto.Encryptor) *ConnectionRepository {
	return &ConnectionRepository{db: db, encryptor: encryptor}
}

const connectionColumns = `id, user_id, institution_name, environment, access_token, status, created_at, updated_at`

func (r *ConnectionRepository) scan(scanner interface{ Scan(...any) error }) (*connection.Connection, error) {
	var conn connection.Connection
	var encryptedToken sql.NullString

	err := scanner.Scan(
		&conn.ID, &conn.UserID, &conn.InstitutionName, &conn.Environment,
		&encryptedToken, &conn.Status, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if encryptedToken.Valid {
		token, err := r.encryptor.Decrypt(encryptedToken.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token for connection %s: %w", conn.ID, err)
		}
		conn.AccessToken = token
	}
	return &conn, nil
}

func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`

	conn, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

func (r *ConnectionRepository) ListByEnvironment(ctx context.Context, environment string) ([]*connection.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE environment = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, environment)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	var conns []*connection.Connection
	for rows.Next() {
		conn, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepository) MarkNeedsReauth(ctx context.Context, id string) error {
	query := `UPDATE connections SET status = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, connection.StatusNeedsReauth); err != nil {
		return fmt.Errorf("failed to mark connection for reauth: %w", err)
	}
	return nil
}
