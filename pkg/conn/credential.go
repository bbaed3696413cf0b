package conn

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrAccessDenied indicates a credential request for a connection owned
	// by a different tenant.
	ErrAccessDenied = errors.New("access denied")

	// ErrCredentialNotFound indicates no credential is registered for the
	// connection.
	ErrCredentialNotFound = errors.New("credential not found")
)

// Credential resolves a plaintext secret for a connection. The secret is
// valid only for the duration of the operation that fetched it; callers must
// not retain it.
type Credential interface {
	Fetch(ctx context.Context, tenantID, connectionID, userID string) (string, error)
}

// StaticCredential is a Credential backed by an in-memory table, used for
// secrets loaded from configuration and by tests.
type StaticCredential struct {
	entries map[string]staticSecret
}

type staticSecret struct {
	tenantID string
	secret   string
}

// NewStaticCredential creates an empty credential table.
func NewStaticCredential() *StaticCredential {
	return &StaticCredential{entries: make(map[string]staticSecret)}
}

// Add registers a secret for a tenant's connection, replacing any previous
// value.
func (c *StaticCredential) Add(tenantID, connectionID, secret string) *StaticCredential {
	c.entries[connectionID] = staticSecret{tenantID: tenantID, secret: secret}
	return c
}

// Fetch returns the secret after verifying tenant ownership.
func (c *StaticCredential) Fetch(_ context.Context, tenantID, connectionID, _ string) (string, error) {
	entry, ok := c.entries[connectionID]
	if !ok {
		return "", errors.Wrapf(ErrCredentialNotFound, "connection %s", connectionID)
	}
	if entry.tenantID != tenantID {
		return "", errors.Wrapf(ErrAccessDenied, "tenant %s does not own connection %s", tenantID, connectionID)
	}
	return entry.secret, nil
}
