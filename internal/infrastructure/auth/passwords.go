package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/argon2"

	"landai/app/internal/domain/identity"
)

const (
	argon2Memory      = 64 * 1024
	argon2Iterations  = 3
	argon2Parallelism = 4
	argon2SaltLength  = 16
	argon2KeyLength   = 32

	maxPasswordLength = 1024
)

// Argon2Hasher hashes passwords with argon2id in the PHC string format.
type Argon2Hasher struct{}

var _ identity.PasswordHasher = Argon2Hasher{}

// Hash implements identity.PasswordHasher.
func (Argon2Hasher) Hash(password string) (string, error) {
	return HashPassword(password)
}

// Verify implements identity.PasswordHasher.
func (Argon2Hasher) Verify(encodedHash, password string) (bool, error) {
	return VerifyPassword(encodedHash, password)
}

// HashPassword creates an argon2id hash of the password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", eris.New("password cannot be empty")
	}
	if len(password) > maxPasswordLength {
		return "", eris.New("password exceeds maximum length")
	}

	salt := make([]byte, argon2SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", eris.Wrap(err, "generating salt")
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Iterations, argon2Memory, argon2Parallelism, argon2KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Iterations,
		argon2Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword reports whether password matches the encoded hash.
// Malformed hashes report false without an error.
func VerifyPassword(encodedHash, password string) (bool, error) {
	if len(password) > maxPasswordLength {
		return false, nil
	}

	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, nil
	}

	candidate := argon2.IDKey([]byte(password), salt, params.iterations, params.memory, params.parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, candidate) == 1, nil
}

type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decodeHash(encodedHash string) (*argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, nil, eris.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, eris.Wrap(err, "invalid version")
	}
	if version != argon2.Version {
		return nil, nil, nil, eris.Errorf("incompatible version: %d", version)
	}

	params := &argon2Params{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.iterations, &params.parallelism); err != nil {
		return nil, nil, nil, eris.Wrap(err, "invalid parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "invalid salt encoding")
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "invalid hash encoding")
	}

	return params, salt, hash, nil
}
