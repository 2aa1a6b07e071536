package connection

import "time"

// Environment values for a connection. Sandbox and production connections
// never mix in one batch run.
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

// Connection status values.
const (
	StatusActive      = "active"
	StatusNeedsReauth = "needs_reauth"
)

// Connection is one authorized link between a user and a financial
// institution. The access token is the credential for the aggregator API and
// is stored encrypted at rest.
type Connection struct {
	ID              string    `json:"id"`
	UserID          int64     `json:"user_id"`
	InstitutionName string    `json:"institution_name"`
	Environment     string    `json:"environment"`
	AccessToken     string    `json:"-"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Syncable reports whether the connection can be synced right now. A
// connection flagged for relink keeps its data but is skipped until the user
// re-authorizes.
func (c *Connection) Syncable() bool {
	return c.Status == StatusActive && c.AccessToken != ""
}
