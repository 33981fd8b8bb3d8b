package app

import (
	"context"

	"github.com/party-queue-client/internal/auth"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/pkg/models"
)

type SessionInfoSource interface {
	SessionInfo(ctx context.Context) (models.SessionInfo, error)
}

// BackendIdentity asks the backend who the session token belongs to.
type BackendIdentity struct {
	Source SessionInfoSource
}

func (b BackendIdentity) Resolve(ctx context.Context) (role.Identity, error) {
	info, err := b.Source.SessionInfo(ctx)
	if err != nil {
		return role.Identity{}, err
	}
	return role.Identity{
		UserID:      info.UserID,
		DisplayName: info.DisplayName,
		Role:        role.Parse(info.Role),
	}, nil
}

// TokenIdentity reads the identity straight from a signed session token.
type TokenIdentity struct {
	Verifier *auth.Verifier
	Token    string
}

func (t TokenIdentity) Resolve(context.Context) (role.Identity, error) {
	return t.Verifier.Verify(t.Token)
}
