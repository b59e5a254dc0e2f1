// Package model holds the Instance type shared between the instance store
// and its transform registry, so neither package needs to import the other.
package model

// Instance is an opaque key-value unit of upstream data. Templates address
// its fields by dotted path (see internal/matcher).
type Instance map[string]any
