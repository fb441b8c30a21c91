package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/identity"
)

func TestParseIdentity(testInstance *testing.T) {
	testCases := []struct {
		name             string
		display          string
		expectedIdentity identity.Identity
		expectError      bool
	}{
		{
			name:             "standard_form",
			display:          "Ada Lovelace <ada@example.com>",
			expectedIdentity: identity.Identity{Name: "Ada Lovelace", Email: "ada@example.com"},
		},
		{
			name:             "surrounding_whitespace",
			display:          "  Ada   <ada@example.com>  ",
			expectedIdentity: identity.Identity{Name: "Ada", Email: "ada@example.com"},
		},
		{name: "missing_email", display: "Ada <>", expectError: true},
		{name: "missing_brackets", display: "ada@example.com", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parsedIdentity, parseError := identity.Parse(testCase.display)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedIdentity, parsedIdentity)
			require.Equal(testInstance, testCase.expectedIdentity.Name+" <"+testCase.expectedIdentity.Email+">", parsedIdentity.String())
		})
	}
}

func TestSameUsesCanonicalizer(testInstance *testing.T) {
	upper := identity.New("Ada", "ADA@example.com")
	lower := identity.New("Ada", "ada@example.com")

	require.False(testInstance, identity.Same(identity.ExactCanonicalizer{}, upper, lower))
	require.False(testInstance, identity.Same(nil, upper, lower))
	require.True(testInstance, identity.Same(identity.CaseInsensitiveEmailCanonicalizer{}, upper, lower))
	require.False(testInstance, identity.Same(identity.CaseInsensitiveEmailCanonicalizer{}, upper, identity.New("Grace", "ada@example.com")))
}

func TestIdentityValidate(testInstance *testing.T) {
	require.NoError(testInstance, identity.New("Ada", "ada@example.com").Validate())
	require.ErrorIs(testInstance, identity.New("", "ada@example.com").Validate(), identity.ErrIncompleteIdentity)
	require.True(testInstance, identity.Identity{}.IsZero())
}
