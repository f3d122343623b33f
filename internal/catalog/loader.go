// Package catalog loads the per (grade, term) lesson documents.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when no document exists for a (grade, term).
	ErrNotFound = errors.New("catalog not found")
	// ErrInvalidCatalog is returned when a document cannot be parsed or
	// fails validation.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrInvalidParams is returned for grade or term values that cannot name
	// a document.
	ErrInvalidParams = errors.New("invalid grade or term")
)

const maxDocumentSize = 8 << 20

var paramPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

// Document is a raw lessons document as fetched from a Source.
type Document struct {
	Name string
	Raw  []byte // always JSON, YAML sources are converted
}

// Source fetches the raw document named by DocumentName.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DocumentName returns the deterministic document name for (grade, term).
func DocumentName(grade, term string) string {
	return fmt.Sprintf("lessons_grade%s_term%s.json", grade, term)
}

// ValidateParams rejects grade and term values that are empty or could
// escape the document namespace.
func ValidateParams(grade, term string) error {
	if !paramPattern.MatchString(grade) || !paramPattern.MatchString(term) {
		return fmt.Errorf("%w: grade=%q term=%q", ErrInvalidParams, grade, term)
	}
	return nil
}

// Loader fetches and parses lesson documents. It makes a single attempt per
// call and keeps nothing between calls.
type Loader struct {
	source Source
}

// NewLoader creates a loader over source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Load fetches and parses the catalog for (grade, term).
func (l *Loader) Load(ctx context.Context, grade, term string) (Catalog, error) {
	_, c, err := l.LoadDocument(ctx, grade, term)
	return c, err
}

// LoadDocument is Load that also returns the raw document.
func (l *Loader) LoadDocument(ctx context.Context, grade, term string) (Document, Catalog, error) {
	if err := ValidateParams(grade, term); err != nil {
		return Document{}, nil, err
	}

	name := DocumentName(grade, term)
	raw, err := l.source.Fetch(ctx, name)
	if err != nil {
		return Document{}, nil, fmt.Errorf("fetching %s: %w", name, err)
	}

	c, err := Validate(raw)
	if err != nil {
		return Document{}, nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	slog.Debug("catalog loaded", "document", name, "branches", len(c))
	return Document{Name: name, Raw: raw}, c, nil
}

// DirSource reads documents from a directory. When the JSON document is
// missing it falls back to a .yaml file with the same base name.
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	yamlPath := strings.TrimSuffix(path, ".json") + ".yaml"
	data, err = os.ReadFile(yamlPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return yamlToJSON(data)
}

// HTTPSource fetches documents relative to a base URL.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a source fetching {baseURL}/{name}.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+name, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog server error (status %d)", resp.StatusCode)
	}
	return body, nil
}

// ParseFile reads and validates a single document from disk. Files ending in
// .yaml or .yml are converted to JSON first.
func ParseFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return nil, err
		}
	}
	return Validate(data)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return out, nil
}
