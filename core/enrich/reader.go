package enrich

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/ledongthuc/pdf"
)

// DefaultExtension is appended to references written without one.
const DefaultExtension = ".md"

// ErrNotFound is returned when a reference names no file in the vault.
var ErrNotFound = errors.New("file not found")

// Reader is the file access the enricher needs.
type Reader interface {
	// Resolve maps a reference name to a path Read or ExtractText accept.
	Resolve(name string) (string, error)
	// Read returns a text document's content.
	Read(path string) (string, error)
	// ExtractText returns the text of a paged binary document.
	ExtractText(path string) (string, error)
}

// IsBinaryDocument reports whether path needs ExtractText rather than Read.
func IsBinaryDocument(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// IsTextDocument reports whether Read can handle path.
func IsTextDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".html", ".htm", "":
		return true
	}
	return false
}

// Vault reads files below a root directory, the way canvas file nodes and
// [[references]] address them.
type Vault struct {
	root string
}

// NewVault returns a Vault rooted at root.
func NewVault(root string) *Vault {
	return &Vault{root: root}
}

// Root returns the vault directory.
func (v *Vault) Root() string {
	return v.root
}

func (v *Vault) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(v.root, filepath.FromSlash(path))
}

// Resolve finds the file a reference points to. Names without an extension
// get DefaultExtension. A name is tried as a vault-relative path first, then
// matched by base name anywhere in the vault.
func (v *Vault) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if filepath.Ext(name) == "" {
		name += DefaultExtension
	}

	if info, err := os.Stat(v.abs(name)); err == nil && !info.IsDir() {
		return filepath.ToSlash(name), nil
	}

	base := filepath.Base(filepath.FromSlash(name))
	var found string
	err := filepath.WalkDir(v.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() && strings.HasPrefix(entry.Name(), ".") && path != v.root {
			return filepath.SkipDir
		}
		if !entry.IsDir() && strings.EqualFold(entry.Name(), base) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", name, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	relative, err := filepath.Rel(v.root, found)
	if err != nil {
		return found, nil
	}
	return filepath.ToSlash(relative), nil
}

// Read returns the content of a text document. HTML is converted to
// markdown so markup does not eat into the token budget.
func (v *Vault) Read(path string) (string, error) {
	raw, err := os.ReadFile(v.abs(path))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		markdown, err := htmltomarkdown.ConvertString(string(raw))
		if err != nil {
			return "", fmt.Errorf("converting %s: %w", path, err)
		}
		return markdown, nil
	}
	return string(raw), nil
}

// ExtractText returns the plain text of a PDF.
func (v *Vault) ExtractText(path string) (string, error) {
	full := v.abs(path)
	if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	file, reader, err := pdf.Open(full)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extracting %s: %w", path, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Load reads path with whichever of Read or ExtractText fits its type.
func Load(reader Reader, path string) (string, error) {
	if IsBinaryDocument(path) {
		return reader.ExtractText(path)
	}
	return reader.Read(path)
}
