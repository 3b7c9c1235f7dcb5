package engine

import (
	"strings"

	"github.com/mrz1836/entropool/internal/suggest"
	poolerr "github.com/mrz1836/entropool/pkg/errors"
)

// Policy selects how reads treat the pool and the cipher. It is fixed for the
// lifetime of an Engine.
type Policy int

const (
	// PolicyFast refreshes every buffer right after it is read and never
	// applies the cipher.
	PolicyFast Policy = iota

	// PolicyWhitened leaves refreshing to the background daemon and XORs
	// every read with the cipher keystream.
	PolicyWhitened
)

// Policy names.
const (
	PolicyNameFast     = "fast"
	PolicyNameWhitened = "whitened"
)

// PolicyNames lists the accepted policy names.
func PolicyNames() []string {
	return []string{PolicyNameFast, PolicyNameWhitened}
}

// String returns the string representation of a policy.
func (p Policy) String() string {
	switch p {
	case PolicyFast:
		return PolicyNameFast
	case PolicyWhitened:
		return PolicyNameWhitened
	default:
		return "unknown"
	}
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyFast || p == PolicyWhitened
}

// ParsePolicy parses a policy name. Unknown names return ErrInvalidPolicy
// with the closest known name as a suggestion.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case PolicyNameFast, "a":
		return PolicyFast, nil
	case PolicyNameWhitened, "b":
		return PolicyWhitened, nil
	}

	err := poolerr.WithDetails(poolerr.ErrInvalidPolicy, map[string]string{
		"policy": s,
		"valid":  strings.Join(PolicyNames(), ", "),
	})
	if guess := suggest.Closest(s, PolicyNames()); guess != "" {
		err = poolerr.WithSuggestion(err, "did you mean '"+guess+"'?")
	}
	return PolicyFast, err
}
