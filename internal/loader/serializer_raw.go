package loader

// RawSerializer passes fetched bytes through as a string, for locations
// whose content is consumed verbatim (e.g. a PEM blob, a plain token).
type RawSerializer struct{}

func (RawSerializer) Decode(data []byte) (any, error) {
	return string(data), nil
}
