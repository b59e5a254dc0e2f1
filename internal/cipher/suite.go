package cipher

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Suite is an immutable, ordered collection of keys. Keys[0] is primary: Encrypt always
// selects it. Decrypt first tries the key named by the ciphertext's header,
// then falls back to an ordered trial across every key, so ciphertext
// produced under a since-demoted key, or under the no-header legacy
// format, still decrypts.
type Suite struct {
	keys    []Key
	schemes map[string]Scheme
}

// NewSuite builds a Suite from an ordered key list. keys[0] is primary.
func NewSuite(keys []Key) (*Suite, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("cipher: suite requires at least one key")
	}
	for _, k := range keys {
		if k.ID == "" {
			return nil, fmt.Errorf("cipher: key missing id")
		}
	}
	return &Suite{
		keys: keys,
		schemes: map[string]Scheme{
			"aead":   AEADScheme{},
			"legacy": LegacyScheme{},
		},
	}, nil
}

func (s *Suite) schemeFor(name string) (Scheme, error) {
	scheme, ok := s.schemes[name]
	if !ok {
		return nil, fmt.Errorf("unknown cipher scheme %q", name)
	}
	return scheme, nil
}

// Primary returns the key Encrypt uses.
func (s *Suite) Primary() Key {
	return s.keys[0]
}

// Identity is a stable fingerprint input: it
// changes whenever the configured key set changes, so cached responses
// rendered under a retired key set don't survive a rotation, without
// exposing any key material.
func (s *Suite) Identity() string {
	parts := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		parts = append(parts, k.ID+":"+k.Scheme)
	}
	return strings.Join(parts, ",")
}

const headerSep = "$"

// Encrypt encrypts plaintext under the primary key and returns a
// self-identifying, transport-safe ciphertext.
func (s *Suite) Encrypt(plaintext []byte) (string, error) {
	primary := s.Primary()
	scheme, err := s.schemeFor(primary.Scheme)
	if err != nil {
		return "", wrap("encrypt", err)
	}

	sealed, err := scheme.Encrypt(primary.Secret, plaintext)
	if err != nil {
		return "", wrap("encrypt", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(sealed)
	return fmt.Sprintf("%s%s%s%s%s", primary.ID, headerSep, primary.Scheme, headerSep, encoded), nil
}

// Decrypt reverses Encrypt, or decrypts a legacy token lacking a header by
// trying every key in order.
func (s *Suite) Decrypt(ciphertext string) ([]byte, error) {
	if keyID, scheme, payload, ok := splitHeader(ciphertext); ok {
		for _, k := range s.keys {
			if k.ID != keyID || k.Scheme != scheme {
				continue
			}
			sch, err := s.schemeFor(k.Scheme)
			if err != nil {
				return nil, wrap("decrypt", err)
			}
			data, err := base64.RawURLEncoding.DecodeString(payload)
			if err != nil {
				return nil, wrap("decrypt", fmt.Errorf("decode payload: %w", err))
			}
			plaintext, err := sch.Decrypt(k.Secret, data)
			if err != nil {
				return nil, wrap("decrypt", err)
			}
			return plaintext, nil
		}
	}

	// No matching header, or a headerless legacy ciphertext: ordered trial.
	var lastErr error
	for _, k := range s.keys {
		sch, err := s.schemeFor(k.Scheme)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := base64.RawURLEncoding.DecodeString(ciphertext)
		if err != nil {
			lastErr = err
			continue
		}
		plaintext, err := sch.Decrypt(k.Secret, data)
		if err != nil {
			lastErr = err
			continue
		}
		return plaintext, nil
	}
	return nil, wrap("decrypt", fmt.Errorf("no key could decrypt ciphertext: %w", lastErr))
}

// Decryptable reports whether ciphertext can be decrypted by any key in
// the suite, without returning the plaintext.
func (s *Suite) Decryptable(ciphertext string) bool {
	_, err := s.Decrypt(ciphertext)
	return err == nil
}

// GenerateKey produces fresh key material for scheme, base64-encoded for
// storage in configuration.
func GenerateKey(scheme string) (string, error) {
	switch scheme {
	case "aead":
		key, err := NewAEADKey()
		if err != nil {
			return "", wrap("generate_key", err)
		}
		return base64.StdEncoding.EncodeToString(key), nil
	case "legacy":
		key, err := NewAEADKey() // 32 random bytes works as an XOR key too
		if err != nil {
			return "", wrap("generate_key", err)
		}
		return base64.StdEncoding.EncodeToString(key), nil
	default:
		return "", wrap("generate_key", fmt.Errorf("unknown cipher scheme %q", scheme))
	}
}

func splitHeader(ciphertext string) (keyID, scheme, payload string, ok bool) {
	parts := strings.SplitN(ciphertext, headerSep, 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
