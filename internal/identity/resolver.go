// Package identity resolves a connection's auth material into an Identity.
// Resolution never fails a connection: a missing or invalid token yields an
// anonymous identity rather than an error, since anonymous participation is
// a supported mode.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the access-token claims this core understands.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type Resolver struct {
	secret []byte
	issuer string
}

func NewResolver(cfg config.AuthConfig) *Resolver {
	return &Resolver{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}
}

// Resolve turns a token (possibly empty) and an optional requested display
// name into an identity. Authenticated identities take their display name
// from the token; the requested name only applies to anonymous sessions.
func (r *Resolver) Resolve(token, displayName string) domain.Identity {
	if token == "" {
		return anonymous(displayName)
	}

	claims, err := r.validate(token)
	if err != nil {
		log.L().Warn().Err(err).Msg("token rejected, session continues as anonymous")
		return anonymous(displayName)
	}

	name := claims.Username
	if name == "" {
		name = claims.UserID
	}
	return domain.Identity{UserID: claims.UserID, DisplayName: name}
}

func (r *Resolver) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if r.issuer != "" {
		if iss, _ := claims.GetIssuer(); iss != r.issuer {
			return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
		}
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims, nil
}

func anonymous(displayName string) domain.Identity {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "visitante-" + uuid.NewString()[:8]
	}
	return domain.Identity{DisplayName: name, Anonymous: true}
}
