package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/rtfr/internal/acknowledgement"
	"github.com/temirov/rtfr/internal/audit"
	"github.com/temirov/rtfr/internal/gitrepo"
	"github.com/temirov/rtfr/internal/gitrepo/gitrepotest"
	"github.com/temirov/rtfr/internal/identity"
	"github.com/temirov/rtfr/internal/workspace"
)

const (
	docsReadmePath       = "docs/README.md"
	rootReadmePath       = "README.md"
	schemaPath           = "docs/schema.sql"
	migrationPath        = "docs/migration.sql"
	notesPath            = "docs/notes.txt"
	sqlAnnotation        = "# Docs\n<!-- README *.sql -->\n"
	sqlAndTextAnnotation = "# Docs\n<!-- README *.sql *.txt -->\n"
	textAnnotation       = "# Docs\n<!-- README *.txt -->\n"
	rootSQLAnnotation    = "# Root\n<!-- README **/*.sql -->\n"
)

var (
	scenarioDiscoverer = stubDiscoverer{readmePaths: []string{rootReadmePath, docsReadmePath}}
	authorAda          = identity.New("Ada", "ada@example.com")
	authorBob          = identity.New("Bob", "bob@example.com")
	authorCarol        = identity.New("Carol", "carol@example.com")
)

// newScenarioRepository commits the README written by Ada together with the schema it governs.
func newScenarioRepository() *gitrepotest.Repository {
	repository := gitrepotest.NewRepository()
	repository.MustCommit("c1", authorAda, nil, gitrepotest.Write(docsReadmePath, sqlAnnotation), gitrepotest.Write(schemaPath, "create table a;"))
	return repository
}

func acknowledgements(entries ...acknowledgementEntry) acknowledgement.Snapshot {
	document := acknowledgement.Document{}
	for _, entry := range entries {
		record := acknowledgement.FileRecord{Path: entry.readmePath, Commit: entry.commit}
		document.Users = append(document.Users, acknowledgement.UserRecord{Name: entry.user.Name, Email: entry.user.Email, Files: []acknowledgement.FileRecord{record}})
	}
	return acknowledgement.NewSnapshot(document, identity.ExactCanonicalizer{})
}

type acknowledgementEntry struct {
	user       identity.Identity
	readmePath string
	commit     string
}

func checkOptions(dedup audit.DedupGranularity) audit.CommandOptions {
	return audit.CommandOptions{
		WorkspaceRoot:      "/workspace",
		HistoryLimit:       100,
		ReadmeHistoryLimit: 1000,
		Workers:            4,
		Dedup:              dedup,
		IdentityMatching:   audit.IdentityMatchingExact,
	}
}

func runCheck(testInstance *testing.T, oracle audit.HistoryOracle, snapshot acknowledgement.Snapshot, options audit.CommandOptions) *audit.WorkspaceContext {
	testInstance.Helper()
	service, serviceError := audit.NewService(oracle, scenarioDiscoverer, nil, zap.NewNop(), nil)
	require.NoError(testInstance, serviceError)
	workspaceContext, checkError := service.Check(context.Background(), options, workspace.DefaultConfig(), snapshot)
	require.NoError(testInstance, checkError)
	return workspaceContext
}

type failingSummaryOracle struct {
	*gitrepotest.Repository
	failingCommit string
}

func (oracle failingSummaryOracle) CommitSummary(executionContext context.Context, revision string) (gitrepo.CommitSummary, error) {
	if revision == oracle.failingCommit {
		return gitrepo.CommitSummary{}, gitrepo.QueryError{Operation: "commit summary", Target: revision, Cause: gitrepotest.ErrUnknownRevision}
	}
	return oracle.Repository.CommitSummary(executionContext, revision)
}

type failingChangesOracle struct {
	*gitrepotest.Repository
	failingCommit string
}

func (oracle failingChangesOracle) ChangedFiles(executionContext context.Context, base string, commit string) ([]string, error) {
	if commit == oracle.failingCommit {
		return nil, gitrepo.QueryError{Operation: "changed files", Target: commit, Cause: gitrepotest.ErrUnknownRevision}
	}
	return oracle.Repository.ChangedFiles(executionContext, base, commit)
}
