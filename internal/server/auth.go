package server

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

// Auth validates bearer tokens. With a shared secret it accepts HS256 JWTs
// and takes the user from the sub claim. Without one it runs in dev mode
// and the bearer value is the user id.
type Auth struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewAuth returns an authenticator for secret. An empty secret enables dev mode.
func NewAuth(secret string) *Auth {
	return &Auth{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:    time.Now,
	}
}

// DevMode reports whether tokens are taken as user ids verbatim.
func (a *Auth) DevMode() bool { return len(a.secret) == 0 }

// UserIDFromAuthHeader extracts the user identifier from the Authorization header.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", errMissingAuthorization
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", errBadAuthorization
	}
	if a.DevMode() {
		if strings.ContainsAny(token, " \t.") {
			return "", errBadAuthorization
		}
		return token, nil
	}
	return a.userIDFromJWT(token)
}

func (a *Auth) userIDFromJWT(raw string) (string, error) {
	parsed, err := a.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	now := a.now().Unix()
	if !claims.VerifyExpiresAt(now, false) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}

// Issue signs a token for userID. A zero ttl issues a token without expiry.
func (a *Auth) Issue(userID string, ttl time.Duration) (string, error) {
	if a.DevMode() {
		return userID, nil
	}
	now := a.now()
	claims := jwt.MapClaims{"sub": userID, "iat": now.Unix()}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
