package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"nftlend/crypto"
)

// AuthConfig configures bearer token verification. The token subject is the
// caller's base58 address.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	ClockSkew  time.Duration
}

// Authenticator resolves the caller of mutating methods.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Caller verifies the bearer token of r and returns its subject.
func (a *Authenticator) Caller(r *http.Request) (crypto.Address, *RPCError) {
	if len(a.secret) == 0 {
		return crypto.ZeroAddress, &RPCError{Code: codeUnauthorized, Message: "RPC authentication secret not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return crypto.ZeroAddress, &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	tokenString := extractBearer(header)
	if tokenString == "" {
		return crypto.ZeroAddress, &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	claims, err := a.parseToken(tokenString)
	if err != nil {
		return crypto.ZeroAddress, &RPCError{Code: codeUnauthorized, Message: "invalid token", Data: err.Error()}
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return crypto.ZeroAddress, &RPCError{Code: codeUnauthorized, Message: "token subject required"}
	}
	caller, err := crypto.ParseAddress(subject)
	if err != nil {
		return crypto.ZeroAddress, &RPCError{Code: codeUnauthorized, Message: "token subject is not an address"}
	}
	return caller, nil
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("claims not map")
	}
	return claims, nil
}

// IssueToken signs an HS256 caller token for subject.
func IssueToken(secret, issuer string, subject crypto.Address, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("auth: secret must not be empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  subject.String(),
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
