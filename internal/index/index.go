package index

// DocumentIndex defines the interface for document indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string) error
	RenameDocument(oldName, newName, levelPath string, depth int, fileTitle string) error
	DeleteDocument(name string) error
	GetChecksum(name string) (string, error)
	AllChecksums() (map[string]string, error)
	TitleMap() (map[string]string, error)
	ListDocuments(limit, offset int, sort string) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
