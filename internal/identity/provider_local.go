//go:build !protogen

package identity

// NewProvider returns the local HS256 provider. The gRPC introspection
// provider requires generated identity protos (protogen build tag).
func NewProvider(_ string, secret string) (Provider, error) {
	return NewLocalProvider(secret), nil
}
