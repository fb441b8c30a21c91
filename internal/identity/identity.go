// Package identity models the author and reader identities that commits and
// acknowledgements are attributed to.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	identityDisplayTemplateConstant = "%s <%s>"
	identityParseErrorTemplate      = "unrecognized identity %q, expected \"Name <email>\""
)

var identityDisplayExpression = regexp.MustCompile(`^(.+?)\s*<([^<>]*)>$`)

// ErrIncompleteIdentity reports an identity missing its name or email.
var ErrIncompleteIdentity = errors.New("identity requires both name and email")

// Identity is a (name, email) pair as recorded by git.
type Identity struct {
	Name  string `json:"name" mapstructure:"name" validate:"required"`
	Email string `json:"email" mapstructure:"email" validate:"required"`
}

// New trims both fields and builds an Identity.
func New(name string, email string) Identity {
	return Identity{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
}

// Parse reads the "Name <email>" display form.
func Parse(display string) (Identity, error) {
	matches := identityDisplayExpression.FindStringSubmatch(strings.TrimSpace(display))
	if matches == nil {
		return Identity{}, fmt.Errorf(identityParseErrorTemplate, display)
	}
	parsed := New(matches[1], matches[2])
	if validationError := parsed.Validate(); validationError != nil {
		return Identity{}, validationError
	}
	return parsed, nil
}

// Equal compares both fields exactly.
func (identity Identity) Equal(other Identity) bool {
	return identity.Name == other.Name && identity.Email == other.Email
}

// IsZero reports whether both fields are empty.
func (identity Identity) IsZero() bool {
	return len(identity.Name) == 0 && len(identity.Email) == 0
}

// Validate requires both fields to be present.
func (identity Identity) Validate() error {
	if len(identity.Name) == 0 || len(identity.Email) == 0 {
		return ErrIncompleteIdentity
	}
	return nil
}

// String renders the "Name <email>" display form.
func (identity Identity) String() string {
	return fmt.Sprintf(identityDisplayTemplateConstant, identity.Name, identity.Email)
}

// Canonicalizer maps identities onto the form used for comparison.
// Alternative spellings of one person (mailmap entries, case-folded emails) can be merged here.
type Canonicalizer interface {
	Canonicalize(identity Identity) Identity
}

// ExactCanonicalizer compares identities byte for byte.
type ExactCanonicalizer struct{}

// Canonicalize returns the identity unchanged.
func (ExactCanonicalizer) Canonicalize(identity Identity) Identity {
	return identity
}

// CaseInsensitiveEmailCanonicalizer lower-cases emails and leaves names untouched.
type CaseInsensitiveEmailCanonicalizer struct{}

// Canonicalize lower-cases the email address.
func (CaseInsensitiveEmailCanonicalizer) Canonicalize(identity Identity) Identity {
	return Identity{Name: identity.Name, Email: strings.ToLower(identity.Email)}
}

// Same compares two identities through the canonicalizer, falling back to exact comparison.
func Same(canonicalizer Canonicalizer, left Identity, right Identity) bool {
	if canonicalizer == nil {
		return left.Equal(right)
	}
	return canonicalizer.Canonicalize(left).Equal(canonicalizer.Canonicalize(right))
}
