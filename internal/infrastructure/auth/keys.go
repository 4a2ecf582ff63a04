package auth

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

const keyFileName = "auth.key"

// LoadOrGenerateKey returns the token key stored as hex in <dir>/auth.key, creating
// and persisting a fresh random key when the file does not exist yet.
func LoadOrGenerateKey(dir string) ([]byte, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	keyPath := filepath.Join(dir, keyFileName)

	//#nosec G304 -- key path is derived from the configured data directory
	if raw, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(raw))
		if len(keyHex) != keyHexSize {
			return nil, eris.Errorf("invalid auth key length: expected %d hex chars, got %d", keyHexSize, len(keyHex))
		}

		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, eris.Wrap(err, "invalid auth key format")
		}
		return key, nil
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "reading auth key: %s", keyPath)
	}

	key := make([]byte, keyBytesSize)
	if _, err := rand.Read(key); err != nil {
		return nil, eris.Wrap(err, "generating auth key")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, eris.Wrapf(err, "creating key directory: %s", dir)
	}

	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0o600); err != nil {
		return nil, eris.Wrapf(err, "saving auth key: %s", keyPath)
	}

	return key, nil
}
