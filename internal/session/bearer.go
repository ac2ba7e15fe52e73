package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"hallynk/internal/auth"
)

// BaaSClaims is the access token shape issued by the hosted auth provider.
// Only app_metadata is writable by the provider's admins; user_metadata is
// editable by the user and never read for authorization.
type BaaSClaims struct {
	Email       string `json:"email"`
	AppMetadata struct {
		Role string `json:"role"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// BearerResolver verifies HS256 access tokens from the hosted auth provider.
//
// When Accounts is set, the token is tied to the local account with the same
// email and the stored role wins. Without a local account the identity
// carries the role from app_metadata and ID 0.
type BearerResolver struct {
	Secret   []byte
	Issuer   string
	Audience string
	Accounts Accounts
}

func (br *BearerResolver) Resolve(r *http.Request) (*auth.Identity, error) {
	raw := bearerToken(r)
	if raw == "" || len(br.Secret) == 0 {
		return nil, nil
	}
	claims, err := br.parse(raw)
	if err != nil {
		return nil, nil
	}
	email := auth.NormalizeEmail(claims.Email)

	if br.Accounts != nil && email != "" {
		acct, err := br.Accounts.AccountByEmail(r.Context(), email)
		switch {
		case err == nil:
			return IdentityFromAccount(acct, auth.SourceBearer), nil
		case !errors.Is(err, ErrNoAccount):
			return nil, resolutionError("load bearer account", err)
		}
	}

	return &auth.Identity{
		Role:   auth.NormalizeRole(claims.AppMetadata.Role),
		Email:  email,
		Source: auth.SourceBearer,
	}, nil
}

func (br *BearerResolver) parse(raw string) (*BaaSClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(br.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(br.Audience); aud != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}
	token, err := jwt.ParseWithClaims(raw, &BaaSClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return br.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*BaaSClaims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
