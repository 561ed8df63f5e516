package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	oidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// Token types accepted by an Authenticator.
const (
	TokenTypeID     = "id"
	TokenTypeAccess = "access"
)

// AuthConfig selects OIDC protection for the control endpoint. An empty
// Issuer disables it.
type AuthConfig struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	// TokenType is "id" for ID tokens or "access" for JWT access tokens.
	TokenType string `yaml:"token_type"`
}

// AuthConfigFromEnv reads OIDC_ISSUER, OIDC_AUDIENCE and OIDC_TOKEN_TYPE.
func AuthConfigFromEnv() AuthConfig {
	return AuthConfig{
		Issuer:    os.Getenv("OIDC_ISSUER"),
		Audience:  os.Getenv("OIDC_AUDIENCE"),
		TokenType: os.Getenv("OIDC_TOKEN_TYPE"),
	}
}

// Enabled reports whether callers must present a token.
func (c AuthConfig) Enabled() bool { return c.Issuer != "" }

// Authenticator verifies bearer tokens against an OIDC issuer.
type Authenticator struct {
	issuer    string
	audience  string
	tokenType string
	verifier  *oidc.IDTokenVerifier
	jwks      *keyfunc.JWKS
}

// NewAuthenticator discovers the issuer. ID tokens are checked with the
// provider's verifier; access tokens against its JWKS, refreshed hourly.
func NewAuthenticator(ctx context.Context, cfg AuthConfig) (*Authenticator, error) {
	if cfg.Audience == "" {
		return nil, errors.New("oidc: audience is required")
	}
	if cfg.TokenType == "" {
		cfg.TokenType = TokenTypeAccess
	}
	a := &Authenticator{issuer: cfg.Issuer, audience: cfg.Audience, tokenType: cfg.TokenType}

	prov, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	switch cfg.TokenType {
	case TokenTypeID:
		a.verifier = prov.Verifier(&oidc.Config{ClientID: cfg.Audience})
	case TokenTypeAccess:
		var disc struct {
			JWKSURI string `json:"jwks_uri"`
		}
		if err := prov.Claims(&disc); err != nil || disc.JWKSURI == "" {
			return nil, fmt.Errorf("discover jwks_uri: %v", err)
		}
		a.jwks, err = keyfunc.Get(disc.JWKSURI, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshTimeout:  10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
	default:
		return nil, fmt.Errorf("oidc: unknown token type %q", cfg.TokenType)
	}
	return a, nil
}

// Close stops the background JWKS refresh.
func (a *Authenticator) Close() {
	if a != nil && a.jwks != nil {
		a.jwks.EndBackground()
	}
}

// Verify checks one raw token.
func (a *Authenticator) Verify(ctx context.Context, raw string) error {
	if a.tokenType == TokenTypeID {
		if a.verifier == nil {
			return errors.New("verifier not initialized")
		}
		_, err := a.verifier.Verify(ctx, raw)
		return err
	}
	if a.jwks == nil {
		return errors.New("jwks not initialized")
	}
	tok, err := jwt.Parse(raw, a.jwks.Keyfunc, jwt.WithAudience(a.audience), jwt.WithIssuer(a.issuer))
	if err != nil {
		return err
	}
	if !tok.Valid {
		return errors.New("token is not valid")
	}
	return nil
}

// bearer extracts the token from the Authorization header, or from the
// access_token query parameter since browsers cannot set headers on a
// WebSocket upgrade.
func bearer(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return "", false
		}
		return strings.TrimSpace(h[len("Bearer "):]), true
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}
	return "", false
}

// Middleware rejects requests without a valid token. A nil Authenticator
// lets everything through.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearer(r)
		if !ok {
			http.Error(w, "missing bearer", http.StatusUnauthorized)
			return
		}
		if err := a.Verify(r.Context(), raw); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// originAllowed applies the CORS allow list. An empty list allows any origin.
func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func cors(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SplitCSV splits a comma-separated list, dropping blanks.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
