package acknowledgement_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/identity"
)

func TestParseDocument(testInstance *testing.T) {
	testCases := []struct {
		name          string
		data          string
		expectedUsers int
		expectError   bool
	}{
		{name: "empty_input", data: "  \n", expectedUsers: 0},
		{name: "legacy_without_version", data: `{"users":[{"name":"Ada","email":"ada@example.com","files":[{"path":"README.md","commit":"c1"}]}]}`, expectedUsers: 1},
		{name: "versioned", data: `{"version":1,"users":[]}`, expectedUsers: 0},
		{name: "null_users", data: `{"users":null}`, expectedUsers: 0},
		{name: "malformed_json", data: `{"users":[`, expectError: true},
		{name: "missing_email", data: `{"users":[{"name":"Ada","files":[]}]}`, expectError: true},
		{name: "missing_commit", data: `{"users":[{"name":"Ada","email":"ada@example.com","files":[{"path":"README.md"}]}]}`, expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			document, parseError := acknowledgement.ParseDocument("test", []byte(testCase.data))
			if testCase.expectError {
				var documentError acknowledgement.DocumentError
				require.ErrorAs(testInstance, parseError, &documentError)
				return
			}
			require.NoError(testInstance, parseError)
			require.NotNil(testInstance, document.Users)
			require.Len(testInstance, document.Users, testCase.expectedUsers)
		})
	}
}

func TestDocumentSetAndEncode(testInstance *testing.T) {
	ada := identity.New("Ada", "ada@example.com")
	grace := identity.New("Grace", "grace@example.com")

	document := acknowledgement.Document{}
	document.Set(nil, ada, "docs/README.md", "c1")
	document.Set(nil, ada, "README.md", "c2")
	document.Set(nil, ada, "docs/README.md", "c3")
	document.Set(nil, grace, "README.md", "c2")

	require.Equal(testInstance, []string{"c3"}, document.Commits(nil, ada, "docs/README.md"))
	require.Equal(testInstance, []string{"c2"}, document.Commits(nil, grace, "README.md"))
	require.Empty(testInstance, document.Commits(nil, grace, "docs/README.md"))

	encoded, encodeError := document.Encode()
	require.NoError(testInstance, encodeError)
	require.Equal(testInstance, `{
  "version": 1,
  "users": [
    {
      "name": "Ada",
      "email": "ada@example.com",
      "files": [
        {
          "path": "README.md",
          "commit": "c2"
        },
        {
          "path": "docs/README.md",
          "commit": "c3"
        }
      ]
    },
    {
      "name": "Grace",
      "email": "grace@example.com",
      "files": [
        {
          "path": "README.md",
          "commit": "c2"
        }
      ]
    }
  ]
}
`, string(encoded))
}

func TestSnapshotCommits(testInstance *testing.T) {
	document := acknowledgement.Document{Users: []acknowledgement.UserRecord{
		{Name: "Ada", Email: "Ada@Example.com", Files: []acknowledgement.FileRecord{
			{Path: "README.md", Commit: "c1"},
			{Path: "README.md", Commit: "c4"},
		}},
	}}

	exactSnapshot := acknowledgement.NewSnapshot(document, nil)
	require.Equal(testInstance, []string{"c1", "c4"}, exactSnapshot.Commits(identity.New("Ada", "Ada@Example.com"), "README.md"))
	require.Empty(testInstance, exactSnapshot.Commits(identity.New("Ada", "ada@example.com"), "README.md"))
	require.Equal(testInstance, 2, exactSnapshot.Size())

	foldedSnapshot := acknowledgement.NewSnapshot(document, identity.CaseInsensitiveEmailCanonicalizer{})
	require.Equal(testInstance, []string{"c1", "c4"}, foldedSnapshot.Commits(identity.New("Ada", "ada@example.com"), "README.md"))

	require.Empty(testInstance, acknowledgement.EmptySnapshot().Commits(identity.New("Ada", "ada@example.com"), "README.md"))
}
