package read_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/gitrepo/gitrepotest"
	"github.com/temirov/rtfr/internal/identity"
	"github.com/temirov/rtfr/internal/read"
)

const (
	testWorkspaceRoot  = "/workspace"
	testDocsReadmePath = "docs/README.md"
)

var (
	authorAda = identity.New("Ada", "ada@example.com")
	readerBob = identity.New("Bob", "bob@example.com")
)

// buildReadRepository: c1 adds the README, c2 touches unrelated code, c3 edits the README, c4 touches code again.
func buildReadRepository() *gitrepotest.Repository {
	repository := gitrepotest.NewRepository()
	repository.MustCommit("c1", authorAda, nil, gitrepotest.Write(testDocsReadmePath, "v1"))
	repository.MustCommit("c2", authorAda, []string{"c1"}, gitrepotest.Write("main.go", "package main"))
	repository.MustCommit("c3", authorAda, []string{"c2"}, gitrepotest.Write(testDocsReadmePath, "v2"))
	repository.MustCommit("c4", authorAda, []string{"c3"}, gitrepotest.Write("main.go", "package main // v2"))
	repository.SetConfiguredIdentity(readerBob)
	return repository
}

func newFileStore(testInstance *testing.T, repository *gitrepotest.Repository) *acknowledgement.FileStore {
	testInstance.Helper()
	store, creationError := acknowledgement.NewFileStore(filepath.Join(testInstance.TempDir(), acknowledgement.DefaultFileName), repository, nil, nil)
	require.NoError(testInstance, creationError)
	return store
}

func TestServiceRecordsLatestReadmeRevision(testInstance *testing.T) {
	repository := buildReadRepository()
	store := newFileStore(testInstance, repository)
	observedCore, observedLogs := observer.New(zapcore.InfoLevel)

	service, serviceError := read.NewService(repository, store, zap.New(observedCore))
	require.NoError(testInstance, serviceError)
	defer service.Close()

	result, readError := service.Read(context.Background(), testWorkspaceRoot, "./docs/README.md")
	require.NoError(testInstance, readError)
	require.Equal(testInstance, readerBob, result.Identity)
	require.Equal(testInstance, testDocsReadmePath, result.ReadmePath)
	require.Equal(testInstance, "c3", result.Commit)
	require.True(testInstance, result.Outcome.Recorded)

	document, loadError := store.Load(context.Background())
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"c3"}, document.Commits(nil, readerBob, testDocsReadmePath))
	require.Equal(testInstance, 1, observedLogs.FilterMessage("Recorded README acknowledgement").Len())

	again, againError := service.Read(context.Background(), testWorkspaceRoot, testDocsReadmePath)
	require.NoError(testInstance, againError)
	require.False(testInstance, again.Outcome.Recorded)
}

func TestServiceReadsAtHead(testInstance *testing.T) {
	repository := buildReadRepository()
	require.NoError(testInstance, repository.SetHead("c2"))
	store := newFileStore(testInstance, repository)

	service, serviceError := read.NewService(repository, store, nil)
	require.NoError(testInstance, serviceError)
	defer service.Close()

	result, readError := service.Read(context.Background(), testWorkspaceRoot, testDocsReadmePath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "c1", result.Commit)
}

func TestServiceFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configured    identity.Identity
		readme        string
		expectedError error
	}{
		{name: "identity_not_configured", configured: identity.Identity{}, readme: testDocsReadmePath, expectedError: gitrepo.ErrIdentityNotConfigured},
		{name: "readme_never_committed", configured: readerBob, readme: "api/README.md", expectedError: read.ErrReadmeHasNoHistory},
		{name: "readme_outside_workspace", configured: readerBob, readme: "../README.md", expectedError: read.ErrReadmeOutsideWorkspace},
		{name: "empty_argument", configured: readerBob, readme: "  ", expectedError: read.ErrReadmePathRequired},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			repository := buildReadRepository()
			repository.SetConfiguredIdentity(testCase.configured)
			store := newFileStore(subTest, repository)

			service, serviceError := read.NewService(repository, store, nil)
			require.NoError(subTest, serviceError)
			defer service.Close()

			_, readError := service.Read(context.Background(), testWorkspaceRoot, testCase.readme)
			require.ErrorIs(subTest, readError, testCase.expectedError)

			document, loadError := store.Load(context.Background())
			require.NoError(subTest, loadError)
			require.Empty(subTest, document.Users)
		})
	}
}

func TestServiceSerializesConcurrentReads(testInstance *testing.T) {
	repository := buildReadRepository()
	repository.MustCommit("c5", authorAda, []string{"c4"}, gitrepotest.Write("README.md", "root"))
	store := newFileStore(testInstance, repository)
	service, serviceError := read.NewService(repository, store, nil)
	require.NoError(testInstance, serviceError)
	defer service.Close()

	var waitGroup sync.WaitGroup
	readErrors := make([]error, 2)
	for readIndex, readmePath := range []string{testDocsReadmePath, "README.md"} {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			_, readErrors[readIndex] = service.Read(context.Background(), testWorkspaceRoot, readmePath)
		}()
	}
	waitGroup.Wait()
	require.NoError(testInstance, readErrors[0])
	require.NoError(testInstance, readErrors[1])

	document, loadError := store.Load(context.Background())
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, []string{"c3"}, document.Commits(nil, readerBob, testDocsReadmePath))
	require.Equal(testInstance, []string{"c5"}, document.Commits(nil, readerBob, "README.md"))
}

func TestNewServiceRequiresCollaborators(testInstance *testing.T) {
	repository := buildReadRepository()

	_, oracleError := read.NewService(nil, newFileStore(testInstance, repository), nil)
	require.ErrorIs(testInstance, oracleError, read.ErrOracleNotConfigured)

	_, storeError := read.NewService(repository, nil, nil)
	require.ErrorIs(testInstance, storeError, read.ErrStoreNotConfigured)
}

func TestWorkspaceRelativePath(testInstance *testing.T) {
	testCases := []struct {
		name          string
		argument      string
		expectedPath  string
		expectedError error
	}{
		{name: "relative", argument: "docs/README.md", expectedPath: "docs/README.md"},
		{name: "dot_prefixed", argument: "./docs/../docs/README.md", expectedPath: "docs/README.md"},
		{name: "absolute_inside", argument: "/workspace/README.md", expectedPath: "README.md"},
		{name: "absolute_outside", argument: "/elsewhere/README.md", expectedError: read.ErrReadmeOutsideWorkspace},
		{name: "workspace_itself", argument: ".", expectedError: read.ErrReadmeOutsideWorkspace},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			relativePath, pathError := read.WorkspaceRelativePath(testWorkspaceRoot, testCase.argument)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, pathError, testCase.expectedError)
				return
			}
			require.NoError(subTest, pathError)
			require.Equal(subTest, testCase.expectedPath, relativePath)
		})
	}
}
