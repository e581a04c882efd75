// Package auth authenticates requests. Two credential kinds are accepted:
// a user JWT bearer token, and the agent service key that maps the
// integration channel to a fixed pseudo-user.
package auth

import (
	"context"
	"crypto/subtle"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/doitpm/assist/store"
)

const (
	// Issuer is the issuer of the jwt token.
	Issuer = "doit"
	// KeyID is the version of the signing key.
	KeyID = "v1"
	// AccessTokenAudienceName is the audience name of the access token.
	AccessTokenAudienceName = "user.access-token"
	// AccessTokenDuration is the lifetime of the access token.
	AccessTokenDuration = 7 * 24 * time.Hour
)

// ClaimsMessage is the JWT payload.
type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAccessToken generates an access token for the user.
func GenerateAccessToken(username string, userID int32, expirationTime time.Time, secret []byte) (string, error) {
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Audience: jwt.ClaimStrings{AccessTokenAudienceName},
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Subject:  strconv.FormatInt(int64(userID), 10),
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Name:             username,
		RegisteredClaims: registeredClaims,
	})
	token.Header["kid"] = KeyID
	return token.SignedString(secret)
}

// Authenticator resolves credentials to a user.
type Authenticator struct {
	store       *store.Store
	secret      string
	agentToken  string
	agentUserID int32
}

func NewAuthenticator(s *store.Store, secret, agentToken string, agentUserID int32) *Authenticator {
	return &Authenticator{
		store:       s,
		secret:      secret,
		agentToken:  agentToken,
		agentUserID: agentUserID,
	}
}

// Result carries the authenticated user and how it was established.
type Result struct {
	User *store.User
	// ServiceChannel is true when the agent service key authenticated the
	// request. The user is then the configured pseudo-user, not the human
	// on whose behalf the channel acts.
	ServiceChannel bool
}

// Authenticate checks the Authorization bearer token first, then the agent
// service key. Returns nil when neither credential is valid.
func (a *Authenticator) Authenticate(ctx context.Context, authorizationHeader, agentKeyHeader string) *Result {
	if token, ok := strings.CutPrefix(authorizationHeader, "Bearer "); ok {
		if user, err := a.authenticateToken(ctx, token); err == nil && user != nil {
			return &Result{User: user}
		}
	}

	if a.agentToken != "" && agentKeyHeader != "" &&
		subtle.ConstantTimeCompare([]byte(agentKeyHeader), []byte(a.agentToken)) == 1 {
		user, err := a.store.GetUser(ctx, &store.FindUser{ID: &a.agentUserID})
		if err != nil || user == nil {
			return nil
		}
		return &Result{User: user, ServiceChannel: true}
	}

	return nil
}

func (a *Authenticator) authenticateToken(ctx context.Context, tokenString string) (*store.User, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(AccessTokenAudienceName))
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return nil, errors.Wrap(err, "malformed token subject")
	}

	id := int32(userID)
	user, err := a.store.GetUser(ctx, &store.FindUser{ID: &id})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	if user == nil {
		return nil, errors.Errorf("user %d not found", id)
	}
	return user, nil
}
