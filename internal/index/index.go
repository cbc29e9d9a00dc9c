package index

// Index defines the read and write operations on the document index.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Index interface {
	UpsertDocument(d DocumentRow, body string, refs []RefRow, assets []AssetRow) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(typ string, limit, offset int) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Backlinks(target string) ([]RefRow, error)
	Refs(source string) ([]RefRow, error)
	Assets(source string) ([]AssetRow, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)
