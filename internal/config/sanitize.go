package config

import "encoding/json"

const redacted = "***REDACTED***"

// Sanitize returns a deep copy of c with every sensitive field redacted,
// for the admin surface's effective-config dump.
func (c *Config) Sanitize() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return c
	}
	var cp Config
	if err := json.Unmarshal(data, &cp); err != nil {
		return c
	}

	cp.Authentication.EncryptionKey.Single = redactIfSet(cp.Authentication.EncryptionKey.Single)
	for i := range cp.Authentication.EncryptionKey.Multi {
		cp.Authentication.EncryptionKey.Multi[i].Key = redactIfSet(cp.Authentication.EncryptionKey.Multi[i].Key)
	}
	for i := range cp.Authentication.AuthPasswords {
		cp.Authentication.AuthPasswords[i] = redacted
	}
	if cp.DiscoveryCache.Remote != nil {
		cp.DiscoveryCache.Remote.Password = redactIfSet(cp.DiscoveryCache.Remote.Password)
	}

	return &cp
}

func redactIfSet(s string) string {
	if s == "" {
		return s
	}
	return redacted
}
