package acknowledgement

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/temirov/rtfr/internal/identity"
)

const (
	// CurrentDocumentVersion is written into every encoded document.
	CurrentDocumentVersion = 1
	// DefaultFileName is the workspace-local acknowledgement file.
	DefaultFileName = ".rtf-readme.json"

	documentIndentConstant  = "  "
	documentNewlineConstant = "\n"
)

var documentValidator = validator.New(validator.WithRequiredStructEnabled())

// FileRecord names the README revision a contributor has read.
type FileRecord struct {
	Path   string `json:"path" validate:"required"`
	Commit string `json:"commit" validate:"required"`
}

// UserRecord lists one contributor's read README revisions.
type UserRecord struct {
	Name  string       `json:"name" validate:"required"`
	Email string       `json:"email" validate:"required"`
	Files []FileRecord `json:"files" validate:"dive"`
}

// Identity returns the contributor the record belongs to.
func (record UserRecord) Identity() identity.Identity {
	return identity.New(record.Name, record.Email)
}

// Document is the persisted acknowledgement state of a workspace.
type Document struct {
	Version int          `json:"version,omitempty" validate:"gte=0"`
	Users   []UserRecord `json:"users" validate:"dive"`
}

// ParseDocument decodes and validates a document. Empty input yields an empty document.
func ParseDocument(source string, data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{Users: []UserRecord{}}, nil
	}

	var document Document
	if decodeError := json.Unmarshal(data, &document); decodeError != nil {
		return Document{}, DocumentError{Source: source, Cause: decodeError}
	}
	if validationError := documentValidator.Struct(document); validationError != nil {
		return Document{}, DocumentError{Source: source, Cause: validationError}
	}
	if document.Users == nil {
		document.Users = []UserRecord{}
	}
	return document, nil
}

// Encode renders the document as indented JSON with a trailing newline.
func (document Document) Encode() ([]byte, error) {
	document.Version = CurrentDocumentVersion
	if document.Users == nil {
		document.Users = []UserRecord{}
	}
	encoded, encodeError := json.MarshalIndent(document, "", documentIndentConstant)
	if encodeError != nil {
		return nil, encodeError
	}
	return append(encoded, documentNewlineConstant...), nil
}

// Commits returns every commit recorded for user and readmePath.
func (document Document) Commits(canonicalizer identity.Canonicalizer, user identity.Identity, readmePath string) []string {
	var commits []string
	for _, userRecord := range document.Users {
		if !identity.Same(canonicalizer, userRecord.Identity(), user) {
			continue
		}
		for _, fileRecord := range userRecord.Files {
			if fileRecord.Path == readmePath {
				commits = append(commits, fileRecord.Commit)
			}
		}
	}
	return commits
}

// Set replaces every record of user for readmePath with commit.
func (document *Document) Set(canonicalizer identity.Canonicalizer, user identity.Identity, readmePath string, commit string) {
	for userIndex := range document.Users {
		userRecord := &document.Users[userIndex]
		if !identity.Same(canonicalizer, userRecord.Identity(), user) {
			continue
		}
		retainedFiles := make([]FileRecord, 0, len(userRecord.Files)+1)
		for _, fileRecord := range userRecord.Files {
			if fileRecord.Path != readmePath {
				retainedFiles = append(retainedFiles, fileRecord)
			}
		}
		userRecord.Files = append(retainedFiles, FileRecord{Path: readmePath, Commit: commit})
		sortFileRecords(userRecord.Files)
		return
	}
	document.Users = append(document.Users, UserRecord{
		Name:  user.Name,
		Email: user.Email,
		Files: []FileRecord{{Path: readmePath, Commit: commit}},
	})
}

// Snapshot is a read-only index of a document by contributor and README.
type Snapshot struct {
	canonicalizer identity.Canonicalizer
	commits       map[snapshotKey][]string
}

type snapshotKey struct {
	user       identity.Identity
	readmePath string
}

// NewSnapshot indexes document. A nil canonicalizer compares identities exactly.
func NewSnapshot(document Document, canonicalizer identity.Canonicalizer) Snapshot {
	if canonicalizer == nil {
		canonicalizer = identity.ExactCanonicalizer{}
	}
	snapshot := Snapshot{canonicalizer: canonicalizer, commits: map[snapshotKey][]string{}}
	for _, userRecord := range document.Users {
		canonicalUser := canonicalizer.Canonicalize(userRecord.Identity())
		for _, fileRecord := range userRecord.Files {
			key := snapshotKey{user: canonicalUser, readmePath: fileRecord.Path}
			snapshot.commits[key] = append(snapshot.commits[key], fileRecord.Commit)
		}
	}
	return snapshot
}

// EmptySnapshot holds no acknowledgements.
func EmptySnapshot() Snapshot {
	return NewSnapshot(Document{}, nil)
}

// Commits returns the commits user has acknowledged for readmePath.
func (snapshot Snapshot) Commits(user identity.Identity, readmePath string) []string {
	if snapshot.commits == nil {
		return nil
	}
	key := snapshotKey{user: snapshot.canonicalizer.Canonicalize(user), readmePath: readmePath}
	return append([]string{}, snapshot.commits[key]...)
}

// Size returns the number of stored acknowledgements.
func (snapshot Snapshot) Size() int {
	size := 0
	for _, commits := range snapshot.commits {
		size += len(commits)
	}
	return size
}

func sortFileRecords(files []FileRecord) {
	sort.SliceStable(files, func(leftIndex int, rightIndex int) bool {
		return files[leftIndex].Path < files[rightIndex].Path
	})
}
