package adminrequest

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxDocumentBytes = 10 * 1024 * 1024

// allowedMimeTypes maps accepted sniffed types to the extension used on disk.
var allowedMimeTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
}

// StoredFile describes a file written by DocumentStore.
type StoredFile struct {
	ID       string
	RelPath  string
	MimeType string
	Size     int64
}

// DocumentStore keeps uploaded documents on local disk under
// <baseDir>/YYYY/MM/DD/<uuid>_<name><ext>.
type DocumentStore struct {
	baseDir  string
	maxBytes int64
}

func NewDocumentStore(baseDir string, maxBytes int64) *DocumentStore {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDocumentBytes
	}
	return &DocumentStore{baseDir: baseDir, maxBytes: maxBytes}
}

// Save sniffs the content type from the first 512 bytes, rejects anything
// that is not pdf/png/jpeg, and writes at most maxBytes to disk.
func (s *DocumentStore) Save(originalName string, size int64, r io.Reader) (*StoredFile, error) {
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read file header: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	mimeType := strings.Split(http.DetectContentType(head), ";")[0]
	ext, ok := allowedMimeTypes[mimeType]
	if !ok {
		return nil, ErrInvalidMimeType
	}

	now := time.Now()
	relDir := fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	absDir := filepath.Join(s.baseDir, relDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	id := uuid.New().String()
	filename := fmt.Sprintf("%s_%s%s", id, sanitizeName(originalName), ext)
	absPath := filepath.Join(absDir, filename)

	dst, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(br, s.maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(absPath)
		return nil, ErrFileTooLarge
	}

	return &StoredFile{
		ID:       id,
		RelPath:  filepath.ToSlash(filepath.Join(relDir, filename)),
		MimeType: mimeType,
		Size:     written,
	}, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *DocumentStore) Remove(relPath string) error {
	err := os.Remove(filepath.Join(s.baseDir, filepath.FromSlash(relPath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	if name == "" || name == "." {
		return "file"
	}
	return name
}
