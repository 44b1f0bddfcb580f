package auth

import "context"

// UserClaims identifies who a request acts for.
type UserClaims interface {
	UserID() string
	Source() string
}

// JWTClaims come from a verified bearer token.
type JWTClaims struct {
	Subject string
}

func (c *JWTClaims) UserID() string { return c.Subject }
func (c *JWTClaims) Source() string { return "JWT" }

// DemoClaims are used when no token is sent.
type DemoClaims struct {
	DemoUserID string
}

func (c *DemoClaims) UserID() string { return c.DemoUserID }
func (c *DemoClaims) Source() string { return "DEMO" }

type claimsKey struct{}

// SetUserClaims attaches the acting user's claims to ctx.
func SetUserClaims(ctx context.Context, claims UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetUserClaims returns the claims set by the auth middleware, or nil outside an authenticated route.
func GetUserClaims(ctx context.Context) UserClaims {
	claims, _ := ctx.Value(claimsKey{}).(UserClaims)
	return claims
}
