// Package auth issues PASETO bearer tokens and hashes account passwords.
package auth

import (
	"encoding/hex"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/rotisserie/eris"

	"landai/app/internal/domain/identity"
	"landai/app/internal/platform/id"
)

const (
	tokenIssuer   = "landai-server"
	tokenAudience = "landai-client"

	keyBytesSize = 32
	keyHexSize   = 64
)

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	ttl          time.Duration
	now          func() time.Time
}

var _ identity.TokenIssuer = (*TokenService)(nil)

// NewTokenService creates a token service from a 64 character hex key.
func NewTokenService(keyHex string, ttl time.Duration) (*TokenService, error) {
	keyHex = strings.TrimSpace(keyHex)
	if len(keyHex) != keyHexSize {
		return nil, eris.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexSize, keyBytesSize, len(keyHex))
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, eris.Wrap(err, "invalid hex string for PASETO key")
	}

	return newTokenService(keyBytes, ttl)
}

// NewTokenServiceFromBytes creates a token service from a raw 32 byte key.
func NewTokenServiceFromBytes(key []byte, ttl time.Duration) (*TokenService, error) {
	return newTokenService(key, ttl)
}

func newTokenService(keyBytes []byte, ttl time.Duration) (*TokenService, error) {
	if len(keyBytes) != keyBytesSize {
		return nil, eris.Errorf("decoded key must be exactly %d bytes, got %d", keyBytesSize, len(keyBytes))
	}
	if ttl <= 0 {
		return nil, eris.New("token ttl must be greater than zero")
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, eris.Wrap(err, "creating PASETO symmetric key")
	}

	return &TokenService{symmetricKey: key, ttl: ttl, now: time.Now}, nil
}

// Issue creates an encrypted token whose subject is userID.
func (s *TokenService) Issue(userID string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, eris.New("token subject is required")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, eris.Wrap(err, "generating token id")
	}
	token.SetJti(tokenID)

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt, nil
}

// Verify decrypts and validates a token and returns its subject.
func (s *TokenService) Verify(tokenString string) (string, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, strings.TrimSpace(tokenString), nil)
	if err != nil {
		return "", eris.Wrap(err, "invalid token")
	}

	subject, err := token.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return "", eris.New("token has no subject")
	}

	return subject, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
