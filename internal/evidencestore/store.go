// Package evidencestore manages the physical evidence artifacts whose hashes
// the ledger records. Files live outside the chain; only their SHA-256
// fingerprints and opaque locator strings are ledger-visible.
package evidencestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrOutsideStore is returned when a locator resolves outside the store root.
var ErrOutsideStore = errors.New("locator escapes the evidence store")

// ErrFileNotFound is returned when a locator points at nothing.
var ErrFileNotFound = errors.New("evidence file not found")

// StoredFile describes one artifact held by the store.
type StoredFile struct {
	EvidenceID string    `json:"evidence_id"`
	CaseID     string    `json:"case_id"`
	Path       string    `json:"path"`
	FileHash   string    `json:"file_hash"`
	SizeBytes  int64     `json:"size_bytes"`
	StoredAt   time.Time `json:"stored_at"`
}

// Stats summarises store contents.
type Stats struct {
	Files      int   `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
}

// Store is a filesystem-backed evidence repository. Artifacts are grouped by
// case under <base>/active/<case_id>/ with a JSON metadata sidecar per file.
type Store struct {
	base   string
	logger *zap.Logger
}

// New creates (if needed) and opens an evidence store rooted at basePath.
func New(basePath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	for _, sub := range []string{"active", "archived"} {
		if err := os.MkdirAll(filepath.Join(abs, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	return &Store{base: abs, logger: logger}, nil
}

// Save streams r into the store under the evidence's case, hashing the
// content while writing. The returned record carries the locator path and
// the computed fingerprint.
func (s *Store) Save(evidenceID, caseID, filename string, r io.Reader) (*StoredFile, error) {
	caseDir := filepath.Join(s.base, "active", sanitize(caseID))
	if err := os.MkdirAll(caseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create case directory: %w", err)
	}

	// Unique on-disk name; the original filename survives only in metadata.
	name := sanitize(evidenceID) + "_" + uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(caseDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("create evidence file: %w", err)
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, h), r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path) //nolint:errcheck
		return nil, fmt.Errorf("write evidence file: %w", err)
	}

	record := &StoredFile{
		EvidenceID: evidenceID,
		CaseID:     caseID,
		Path:       path,
		FileHash:   hex.EncodeToString(h.Sum(nil)),
		SizeBytes:  size,
		StoredAt:   time.Now().UTC(),
	}
	if err := s.writeSidecar(path, record); err != nil {
		os.Remove(path) //nolint:errcheck
		return nil, err
	}

	s.logger.Info("evidence file stored",
		zap.String("evidence_id", evidenceID),
		zap.String("case_id", caseID),
		zap.Int64("bytes", size),
	)
	return record, nil
}

// Retrieve returns the content of a stored artifact.
func (s *Store) Retrieve(storagePath string) ([]byte, error) {
	path, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", storagePath, ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}
	return data, nil
}

// VerifyFile re-hashes a stored artifact and compares it to the fingerprint
// the ledger recorded.
func (s *Store) VerifyFile(storagePath, expectedHash string) (bool, error) {
	path, err := s.resolve(storagePath)
	if err != nil {
		return false, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("%s: %w", storagePath, ErrFileNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("open evidence file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, fmt.Errorf("hash evidence file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)) == expectedHash, nil
}

// ListByCase returns the metadata records of all artifacts stored for a case.
func (s *Store) ListByCase(caseID string) ([]StoredFile, error) {
	caseDir := filepath.Join(s.base, "active", sanitize(caseID))
	entries, err := os.ReadDir(caseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []StoredFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read case directory: %w", err)
	}

	files := []StoredFile{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sidecarSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(caseDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read sidecar %s: %w", e.Name(), err)
		}
		var rec StoredFile
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode sidecar %s: %w", e.Name(), err)
		}
		files = append(files, rec)
	}
	return files, nil
}

// Stats walks the active tree and totals artifact count and bytes.
// Sidecars are excluded.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}
	root := filepath.Join(s.base, "active")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, sidecarSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Files++
		stats.TotalBytes += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store: %w", err)
	}
	return stats, nil
}

const sidecarSuffix = ".meta.json"

func (s *Store) writeSidecar(path string, rec *StoredFile) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(path+sidecarSuffix, data, 0o640); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// resolve confines a locator to the store root.
func (s *Store) resolve(storagePath string) (string, error) {
	abs, err := filepath.Abs(storagePath)
	if err != nil {
		return "", fmt.Errorf("resolve locator: %w", err)
	}
	if abs != s.base && !strings.HasPrefix(abs, s.base+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", storagePath, ErrOutsideStore)
	}
	return abs, nil
}

// sanitize strips path separators from caller-supplied identifiers used as
// filesystem names.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" {
		name = "_"
	}
	return name
}
