//go:build protogen

package identity

import (
	"context"
	"time"

	"github.com/agendaly/agendaly/libs/grpcx"
	identityv1 "github.com/agendaly/agendaly/protos/gen/identity/v1"
)

type grpcProvider struct {
	client identityv1.IdentityServiceClient
	local  Provider
}

// NewProvider introspects tokens against the identity service when an address
// is configured, falling back to local HS256 verification otherwise.
func NewProvider(addr string, secret string) (Provider, error) {
	if addr == "" {
		return NewLocalProvider(secret), nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{
		client: identityv1.NewIdentityServiceClient(conn),
		local:  NewLocalProvider(secret),
	}, nil
}

func (p *grpcProvider) Resolve(ctx context.Context, token string) (Actor, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := p.client.Introspect(reqCtx, &identityv1.IntrospectRequest{Token: token})
	if err != nil {
		// Keep auth working through identity-service outages.
		return p.local.Resolve(ctx, token)
	}
	return Actor{
		ID:         resp.GetSubject(),
		BusinessID: resp.GetBusinessId(),
		Role:       resp.GetRole(),
	}, nil
}
