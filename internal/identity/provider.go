package identity

import (
	"context"

	"github.com/agendaly/agendaly/libs/auth"
)

// Provider resolves a bearer token into an actor context. The identity
// service that issues tokens is external; this engine only verifies them.
type Provider interface {
	Resolve(ctx context.Context, token string) (Actor, error)
}

type localProvider struct {
	secret string
}

// NewLocalProvider verifies HS256 tokens with a shared secret. Used when no
// identity-service address is configured.
func NewLocalProvider(secret string) Provider {
	return &localProvider{secret: secret}
}

func (p *localProvider) Resolve(_ context.Context, token string) (Actor, error) {
	claims, err := auth.ParseAndVerifyHS256(token, p.secret)
	if err != nil {
		return Actor{}, err
	}
	return Actor{
		ID:         claims.Sub,
		BusinessID: claims.BusinessID,
		Role:       claims.Role,
	}, nil
}
