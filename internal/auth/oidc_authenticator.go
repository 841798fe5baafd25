// Rollcall - Attendance Time Synchronization and Presence Verification
// Copyright 2026 Rollcall Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rollcall-attendance/rollcall

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rs"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/rollcall-attendance/rollcall/internal/config"
	"github.com/rollcall-attendance/rollcall/internal/logging"
)

// introspectFunc validates a token against the provider. Split out so tests
// can exercise claim mapping without a live IdP.
type introspectFunc func(ctx context.Context, token string) (*oidc.IntrospectionResponse, error)

// OIDCAuthenticator validates bearer tokens via RFC 7662 token
// introspection. Rollcall is a pure resource server: it never runs an
// authorization code flow itself, it only checks tokens minted by the
// institution's IdP. Every request costs one introspection round trip;
// deployments that need lower latency put the IdP on the same network.
type OIDCAuthenticator struct {
	issuer         string
	rolesClaim     string
	groupsClaim    string
	usernameClaims []string
	defaultRoles   []string
	tokenCookie    string
	introspect     introspectFunc
}

// NewOIDCAuthenticator creates an OIDC authenticator. The constructor
// performs OIDC discovery against the issuer, so it needs network access
// and should be called with a startup-scoped context.
func NewOIDCAuthenticator(ctx context.Context, cfg *config.OIDCConfig) (*OIDCAuthenticator, error) {
	if cfg.IssuerURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("oidc requires issuer_url, client_id and client_secret")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resourceServer, err := rs.NewResourceServerClientCredentials(
		ctx, cfg.IssuerURL, cfg.ClientID, cfg.ClientSecret,
		rs.WithClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", cfg.IssuerURL, err)
	}

	a := newOIDCAuthenticatorFromConfig(cfg)
	a.introspect = func(ctx context.Context, token string) (*oidc.IntrospectionResponse, error) {
		return rs.Introspect[*oidc.IntrospectionResponse](ctx, resourceServer, token)
	}
	return a, nil
}

// newOIDCAuthenticatorFromConfig builds the authenticator without the
// introspection transport, applying claim-mapping defaults.
func newOIDCAuthenticatorFromConfig(cfg *config.OIDCConfig) *OIDCAuthenticator {
	rolesClaim := cfg.RolesClaim
	if rolesClaim == "" {
		rolesClaim = "roles"
	}

	usernameClaims := cfg.UsernameClaims
	if len(usernameClaims) == 0 {
		usernameClaims = []string{"preferred_username", "name", "email"}
	}

	defaultRoles := cfg.DefaultRoles
	if len(defaultRoles) == 0 {
		defaultRoles = []string{"student"}
	}

	return &OIDCAuthenticator{
		issuer:         cfg.IssuerURL,
		rolesClaim:     rolesClaim,
		groupsClaim:    "groups",
		usernameClaims: usernameClaims,
		defaultRoles:   defaultRoles,
		tokenCookie:    "access_token",
	}
}

// Authenticate extracts the bearer token and introspects it.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, r *http.Request) (*AuthSubject, error) {
	tokenStr := a.extractToken(r)
	if tokenStr == "" {
		return nil, ErrNoCredentials
	}

	resp, err := a.introspect(ctx, tokenStr)
	if err != nil {
		logging.Warn().Err(err).Str("issuer", a.issuer).Msg("Token introspection failed")
		return nil, fmt.Errorf("%w: introspection: %v", ErrAuthenticatorUnavailable, err)
	}

	if !resp.Active {
		// Providers report expired and revoked tokens the same way:
		// active=false. When the response still carries an exp in the past
		// we can tell the client its token merely expired.
		if resp.Expiration != 0 && resp.Expiration.AsTime().Before(time.Now()) {
			return nil, ErrExpiredCredentials
		}
		return nil, ErrInvalidCredentials
	}

	subject := a.buildSubject(resp)
	logging.Debug().
		Str("user", subject.Username).
		Str("issuer", subject.Issuer).
		Int("roles", len(subject.Roles)).
		Msg("OIDC authentication successful")

	return subject, nil
}

// Name returns the authenticator name.
func (a *OIDCAuthenticator) Name() string {
	return string(AuthModeOIDC)
}

// Priority returns 10: the IdP is the preferred identity source.
func (a *OIDCAuthenticator) Priority() int {
	return 10
}

// extractToken pulls the bearer token from the Authorization header or the
// access_token cookie.
func (a *OIDCAuthenticator) extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	cookie, err := r.Cookie(a.tokenCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// buildSubject maps an introspection response onto an AuthSubject.
func (a *OIDCAuthenticator) buildSubject(resp *oidc.IntrospectionResponse) *AuthSubject {
	subject := &AuthSubject{
		ID:            resp.Subject,
		Email:         resp.Email,
		EmailVerified: bool(resp.EmailVerified),
		Issuer:        a.issuer,
		AuthMethod:    AuthModeOIDC,
		RawClaims:     resp.Claims,
	}

	for _, claim := range a.usernameClaims {
		if v := a.claimString(resp, claim); v != "" {
			subject.Username = v
			break
		}
	}
	if subject.Username == "" {
		if resp.Username != "" {
			subject.Username = resp.Username
		} else {
			subject.Username = resp.Subject
		}
	}

	subject.Roles = extractStringSlice(resp.Claims, a.rolesClaim)
	if len(subject.Roles) == 0 {
		subject.Roles = append([]string(nil), a.defaultRoles...)
	}
	subject.Groups = extractStringSlice(resp.Claims, a.groupsClaim)

	if resp.IssuedAt != 0 {
		subject.IssuedAt = int64(resp.IssuedAt)
	}
	if resp.Expiration != 0 {
		subject.ExpiresAt = int64(resp.Expiration)
	}

	return subject
}

// claimString resolves a username claim, favoring the typed introspection
// fields over the raw claim map.
func (a *OIDCAuthenticator) claimString(resp *oidc.IntrospectionResponse, claim string) string {
	switch claim {
	case "preferred_username":
		return resp.PreferredUsername
	case "name":
		return resp.Name
	case "email":
		return resp.Email
	case "username":
		return resp.Username
	case "sub":
		return resp.Subject
	default:
		if v, ok := resp.Claims[claim].(string); ok {
			return v
		}
		return ""
	}
}

// extractStringSlice reads a claim that may arrive as []string or []any.
func extractStringSlice(claims map[string]any, key string) []string {
	if claims == nil {
		return nil
	}
	switch v := claims[key].(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
