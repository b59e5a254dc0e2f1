package cipher

import (
	"encoding/base64"
	"fmt"

	"github.com/fleetxds/control-plane/internal/config"
)

// FromConfig builds a Suite from the authentication.encryption_key
// configuration block, accepting both the single-key compact form and the
// structured multi-scheme form.
func FromConfig(spec config.EncryptionKeySpec) (*Suite, error) {
	if len(spec.Multi) > 0 {
		keys := make([]Key, 0, len(spec.Multi))
		for i, k := range spec.Multi {
			secret, err := decodeSecret(k.Key)
			if err != nil {
				return nil, fmt.Errorf("encryption_key.keys[%d]: %w", i, err)
			}
			keys = append(keys, Key{
				ID:     fmt.Sprintf("k%d", i+1),
				Scheme: k.Scheme,
				Secret: secret,
			})
		}
		return NewSuite(keys)
	}

	if spec.Single == "" {
		return nil, fmt.Errorf("authentication.encryption_key is required")
	}
	secret, err := decodeSecret(spec.Single)
	if err != nil {
		return nil, fmt.Errorf("encryption_key: %w", err)
	}
	return NewSuite([]Key{{ID: "k1", Scheme: "aead", Secret: secret}})
}

func decodeSecret(raw string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded, nil
	}
	return []byte(raw), nil
}
