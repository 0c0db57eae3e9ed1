package interfaces

// ArchiveEntry is one file extracted from a submitted archive, classified by
// its manifest-declared document type — never by filename.
type ArchiveEntry struct {
	Filename     string
	DeclaredType string
	Content      []byte
}

// ArchiveExpander unpacks an uploaded archive into individual document
// entries under an all-or-nothing admission policy: if any entry's declared
// type is not in the configured allow-list, the whole archive is rejected
// and no entries are returned.
type ArchiveExpander interface {
	// Expand reads a zip archive plus its manifest and returns every entry,
	// or an error if any entry's type is disallowed, the entry count
	// exceeds the archive cap, or the archive is otherwise malformed.
	Expand(content []byte, allowedTypes map[string]bool, maxFiles int) ([]ArchiveEntry, error)
}
