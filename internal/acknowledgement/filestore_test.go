package acknowledgement_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/gitrepo/gitrepotest"
	"github.com/temirov/rtfr/internal/identity"
)

var testReader = identity.New("Ada", "ada@example.com")

// buildLinearRepository creates c1 -> c2 -> c3 with a side branch b1 off c1.
func buildLinearRepository() *gitrepotest.Repository {
	repository := gitrepotest.NewRepository()
	repository.MustCommit("c1", testReader, nil, gitrepotest.Write("README.md", "v1"))
	repository.MustCommit("c2", testReader, []string{"c1"}, gitrepotest.Write("README.md", "v2"))
	repository.MustCommit("b1", testReader, []string{"c1"}, gitrepotest.Write("README.md", "side"))
	repository.MustCommit("c3", testReader, []string{"c2"}, gitrepotest.Write("README.md", "v3"))
	return repository
}

func newTestFileStore(testInstance *testing.T) *acknowledgement.FileStore {
	testInstance.Helper()
	storePath := filepath.Join(testInstance.TempDir(), acknowledgement.DefaultFileName)
	store, creationError := acknowledgement.NewFileStore(storePath, buildLinearRepository(), nil, nil)
	require.NoError(testInstance, creationError)
	return store
}

func TestFileStoreIsMonotonic(testInstance *testing.T) {
	testCases := []struct {
		name             string
		commits          []string
		expectedFinal    string
		expectedRecorded []bool
	}{
		{name: "newer_replaces_older", commits: []string{"c1", "c3"}, expectedFinal: "c3", expectedRecorded: []bool{true, true}},
		{name: "older_keeps_newer", commits: []string{"c3", "c1"}, expectedFinal: "c3", expectedRecorded: []bool{true, false}},
		{name: "same_commit_is_idempotent", commits: []string{"c2", "c2"}, expectedFinal: "c2", expectedRecorded: []bool{true, false}},
		{name: "sibling_branch_replaces", commits: []string{"c3", "b1"}, expectedFinal: "b1", expectedRecorded: []bool{true, true}},
		{name: "unresolvable_commit_replaces", commits: []string{"c3", "zz"}, expectedFinal: "zz", expectedRecorded: []bool{true, true}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			store := newTestFileStore(testInstance)
			for commitIndex, commit := range testCase.commits {
				outcome, recordError := store.Record(context.Background(), testReader, "README.md", commit)
				require.NoError(testInstance, recordError)
				require.Equal(testInstance, testCase.expectedRecorded[commitIndex], outcome.Recorded)
			}

			document, loadError := store.Load(context.Background())
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, []string{testCase.expectedFinal}, document.Commits(nil, testReader, "README.md"))
		})
	}
}

func TestFileStoreLoad(testInstance *testing.T) {
	store := newTestFileStore(testInstance)

	emptyDocument, emptyError := store.Load(context.Background())
	require.NoError(testInstance, emptyError)
	require.Empty(testInstance, emptyDocument.Users)

	require.NoError(testInstance, os.WriteFile(store.Path(), []byte("{not json"), 0o644))
	_, malformedError := store.Load(context.Background())
	var documentError acknowledgement.DocumentError
	require.ErrorAs(testInstance, malformedError, &documentError)

	_, recordError := store.Record(context.Background(), testReader, "README.md", "c1")
	require.ErrorAs(testInstance, recordError, &documentError)
}

func TestFileStoreWritesDocument(testInstance *testing.T) {
	store := newTestFileStore(testInstance)

	_, recordError := store.Record(context.Background(), testReader, "docs/README.md", "c2")
	require.NoError(testInstance, recordError)

	content, readError := os.ReadFile(store.Path())
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(content), `"path": "docs/README.md"`)
	require.Contains(testInstance, string(content), `"commit": "c2"`)

	entries, listError := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(testInstance, listError)
	require.Len(testInstance, entries, 1)
}

func TestNewFileStoreValidation(testInstance *testing.T) {
	_, missingPathError := acknowledgement.NewFileStore(" ", buildLinearRepository(), nil, nil)
	require.ErrorIs(testInstance, missingPathError, acknowledgement.ErrStorePathRequired)

	_, missingComparatorError := acknowledgement.NewFileStore("store.json", nil, nil, nil)
	require.ErrorIs(testInstance, missingComparatorError, acknowledgement.ErrComparatorNotConfigured)
}
