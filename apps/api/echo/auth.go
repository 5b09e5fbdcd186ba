package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/michezo/core"
	"github.com/trezcool/michezo/core/session"
)

const (
	tokenContextKey = "gameToken"

	// roles carried by game tokens. Full user accounts are issued elsewhere;
	// these claims only shape what a bearer may see and do in a session.
	RoleHost        = string(session.RoleHost)
	RoleParticipant = string(session.RoleParticipant)
)

// appJWTConfig is the JWT auth middleware config for game tokens.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Role        string `json:"role,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

func (c Claims) IsHost() bool { return c.Role == RoleHost }

// GetHostClaims builds the claims of a teacher hosting games.
func GetHostClaims(conf *core.Config, teacherID string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   teacherID,
			Audience:  "Michezo",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role: RoleHost,
	}
}

// GetParticipantClaims builds the claims issued to a participant on join,
// scoped to that one session.
func GetParticipantClaims(conf *core.Config, p session.Participant) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID,
			Audience:  "Michezo",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:        RoleParticipant,
		DisplayName: p.DisplayName,
		SessionID:   p.SessionID,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	cfg := appJWTConfig(conf)
	method := jwt.GetSigningMethod(cfg.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(cfg.SigningKey.([]byte))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextRole(ctx echo.Context) session.Role {
	if claims, err := getContextClaims(ctx); err == nil && claims.IsHost() {
		return session.RoleHost
	}
	return session.RoleParticipant
}
