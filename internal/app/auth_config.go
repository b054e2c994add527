package app

import (
	"strings"

	"github.com/wattrewards/wattrewards/internal/auth"
)

// TokenServiceConfig converts the auth.jwt section for auth.NewTokenService.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}
	return auth.TokenConfig{
		Secret: strings.TrimSpace(c.JWT.Secret),
		Issuer: strings.TrimSpace(c.JWT.Issuer),
		TTL:    ttl,
	}
}
