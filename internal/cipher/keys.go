package cipher

// Key is one named key within a suite. Scheme names which Scheme
// implementation interprets Secret ("aead" or "legacy").
type Key struct {
	ID     string
	Scheme string
	Secret []byte
}

// Scheme is a symmetric crypto algorithm. A suite may hold keys belonging
// to different schemes simultaneously.
type Scheme interface {
	Encrypt(secret, plaintext []byte) ([]byte, error)
	Decrypt(secret, ciphertext []byte) ([]byte, error)
}
