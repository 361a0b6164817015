package env

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrEmptyKey indicates the key is empty.
	ErrEmptyKey = errors.New("empty key")
	// ErrInvalidCharacters indicates the key contains characters outside [A-Za-z0-9_].
	ErrInvalidCharacters = errors.New("invalid characters in key")
	// ErrReservedPrefix indicates the key uses a prefix owned by the runtime.
	ErrReservedPrefix = errors.New("reserved key prefix")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// ReservedPrefixes lists key prefixes reserved by the deployment runtime.
var ReservedPrefixes = []string{"VCAP_", "VMC_"}

const (
	reservedMessage = "VCAP_ and VMC_ reserved by system."
	invalidSuffix   = " is invalid key."
	invalidHint     = " You can use alphabets and numbers and underscore(_)."
)

// ValidationError reports why an environment variable was rejected.
// Error returns the exact message shown to the user.
type ValidationError struct {
	Kind error
	Key  string
	msg  string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// Validate checks the key of p and returns a *ValidationError when it is
// empty, reserved, or contains characters outside [A-Za-z0-9_].
func (p EnvPair) Validate() error {
	return validate(p, false)
}

// validate holds the key rules for both call shapes. Only the empty-key
// message differs: a pair split out of one combined token reports the short
// form.
func validate(p EnvPair, combined bool) error {
	switch {
	case p.Key == "":
		msg := p.Key + invalidSuffix
		if !combined {
			msg += invalidHint
		}
		return &ValidationError{Kind: ErrEmptyKey, Key: p.Key, msg: msg}
	case HasReservedPrefix(p.Key):
		return &ValidationError{Kind: ErrReservedPrefix, Key: p.Key, msg: reservedMessage}
	case !keyPattern.MatchString(p.Key):
		return &ValidationError{
			Kind: ErrInvalidCharacters,
			Key:  p.Key,
			msg:  fmt.Sprintf("%s%s%s", p.Key, invalidSuffix, invalidHint),
		}
	}
	return nil
}

// ValidateEnvToken parses a combined KEY=VALUE token and validates it.
func ValidateEnvToken(token string) (EnvPair, error) {
	pair := ParseEnvPair(token)
	if err := validate(pair, true); err != nil {
		return EnvPair{}, err
	}
	return pair, nil
}

// ValidateEnvKey validates a key supplied separately from its value.
func ValidateEnvKey(key, value string) (EnvPair, error) {
	pair := EnvPair{Key: key, Value: value}
	if err := validate(pair, false); err != nil {
		return EnvPair{}, err
	}
	return pair, nil
}
