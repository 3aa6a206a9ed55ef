package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/seunghun2/daedaesonson/internal/cache"
)

var (
	// ErrNoDocumentContent is returned when a source yields nothing to parse.
	ErrNoDocumentContent = errors.New("document has no content")
	// ErrUnsupportedDocument is returned for file types no source handles.
	ErrUnsupportedDocument = errors.New("unsupported document type")
)

// Document is the loaded content of one source. Exactly one of Fragments or
// Candidates is set.
type Document struct {
	ID         string
	Checksum   string
	Fragments  []Fragment
	Candidates []CandidateItem
}

// IsCandidate reports whether the document came from candidate JSON and
// skips line segmentation.
func (d *Document) IsCandidate() bool {
	return d.Candidates != nil
}

// Source loads a document. Implementations must honour ctx cancellation.
type Source interface {
	ID() string
	Load(ctx context.Context) (*Document, error)
}

// TextSource is plain extracted text. Line breaks in the text are the only
// row boundaries.
type TextSource struct {
	DocID string
	Path  string
	Text  string
}

// ID returns the document ID.
func (s *TextSource) ID() string { return docID(s.DocID, s.Path) }

// Load reads the text.
func (s *TextSource) Load(ctx context.Context) (*Document, error) {
	data, err := readOrInline(ctx, s.Path, []byte(s.Text))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoDocumentContent
	}
	return &Document{
		ID:        s.ID(),
		Checksum:  cache.ContentChecksum(data),
		Fragments: []Fragment{{Text: string(data)}},
	}, nil
}

// FragmentSource is a JSON list of positioned fragments, either a bare
// array or {"fragments": [...]}.
type FragmentSource struct {
	DocID     string
	Path      string
	Data      []byte
	Fragments []Fragment
}

// ID returns the document ID.
func (s *FragmentSource) ID() string { return docID(s.DocID, s.Path) }

// Load decodes the fragments.
func (s *FragmentSource) Load(ctx context.Context) (*Document, error) {
	if s.Fragments != nil {
		data, err := json.Marshal(s.Fragments)
		if err != nil {
			return nil, fmt.Errorf("marshal fragments: %w", err)
		}
		if len(s.Fragments) == 0 {
			return nil, ErrNoDocumentContent
		}
		return &Document{ID: s.ID(), Checksum: cache.ContentChecksum(data), Fragments: s.Fragments}, nil
	}

	data, err := readOrInline(ctx, s.Path, s.Data)
	if err != nil {
		return nil, err
	}
	frags, err := decodeFragments(data)
	if err != nil {
		return nil, err
	}
	if len(frags) == 0 {
		return nil, ErrNoDocumentContent
	}
	return &Document{ID: s.ID(), Checksum: cache.ContentChecksum(data), Fragments: frags}, nil
}

// CandidateSource is candidate JSON produced by an external extraction
// service.
type CandidateSource struct {
	DocID string
	Path  string
	Data  []byte
}

// ID returns the document ID.
func (s *CandidateSource) ID() string { return docID(s.DocID, s.Path) }

// Load decodes and validates the candidate items.
func (s *CandidateSource) Load(ctx context.Context) (*Document, error) {
	data, err := readOrInline(ctx, s.Path, s.Data)
	if err != nil {
		return nil, err
	}
	items, err := DecodeCandidates(data)
	if err != nil {
		return nil, err
	}
	return &Document{ID: s.ID(), Checksum: cache.ContentChecksum(data), Candidates: items}, nil
}

// SourceFromPath picks a source by file extension. JSON files are sniffed
// for candidate items versus fragments.
func SourceFromPath(path string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return &PDFSource{Path: path}, nil
	case ".txt", ".md", ".text":
		return &TextSource{Path: path}, nil
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if looksLikeFragments(data) {
			return &FragmentSource{DocID: filepath.Base(path), Data: data}, nil
		}
		return &CandidateSource{DocID: filepath.Base(path), Data: data}, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedDocument)
}

func looksLikeFragments(data []byte) bool {
	trimmed := bytes.TrimSpace(stripCodeFence(data))
	if bytes.HasPrefix(trimmed, []byte("[")) {
		return true
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return false
	}
	_, ok := keys["fragments"]
	return ok
}

func decodeFragments(data []byte) ([]Fragment, error) {
	trimmed := bytes.TrimSpace(stripCodeFence(data))
	var frags []Fragment
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &frags); err != nil {
			return nil, fmt.Errorf("decode fragments: %w", err)
		}
		return frags, nil
	}
	var wrapped struct {
		Fragments []Fragment `json:"fragments"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode fragments: %w", err)
	}
	return wrapped.Fragments, nil
}

func readOrInline(ctx context.Context, path string, inline []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return inline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func docID(id, path string) string {
	if id != "" {
		return id
	}
	if path != "" {
		return filepath.Base(path)
	}
	return "inline"
}
