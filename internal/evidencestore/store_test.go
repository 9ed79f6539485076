package evidencestore_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/forensic-chain/forchain/internal/evidencestore"
	"github.com/forensic-chain/forchain/internal/hashing"
)

func newStore(t *testing.T) *evidencestore.Store {
	t.Helper()
	s, err := evidencestore.New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSaveAndRetrieve(t *testing.T) {
	s := newStore(t)
	content := []byte("disk image contents")

	rec, err := s.Save("e1", "case-1", "image.dd", bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if rec.FileHash != hashing.Sum(content) {
		t.Errorf("stored hash %q != content hash", rec.FileHash)
	}
	if rec.SizeBytes != int64(len(content)) {
		t.Errorf("size: got %d, want %d", rec.SizeBytes, len(content))
	}

	got, err := s.Retrieve(rec.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("retrieved content differs from stored content")
	}
}

func TestVerifyFile(t *testing.T) {
	s := newStore(t)
	rec, err := s.Save("e1", "case-1", "log.txt", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.VerifyFile(rec.Path, rec.FileHash)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("freshly stored file failed verification")
	}

	ok, err = s.VerifyFile(rec.Path, "0000")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("wrong fingerprint passed verification")
	}
}

func TestRetrieve_rejectsEscapingLocator(t *testing.T) {
	s := newStore(t)
	if _, err := s.Retrieve("/etc/passwd"); !errors.Is(err, evidencestore.ErrOutsideStore) {
		t.Errorf("got %v, want ErrOutsideStore", err)
	}
}

func TestListByCase_andStats(t *testing.T) {
	s := newStore(t)
	if _, err := s.Save("e1", "case-1", "a.bin", strings.NewReader("aaaa")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("e2", "case-1", "b.bin", strings.NewReader("bbbbbb")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save("e3", "case-2", "c.bin", strings.NewReader("cc")); err != nil {
		t.Fatal(err)
	}

	files, err := s.ListByCase("case-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("case-1 files: got %d, want 2", len(files))
	}
	for _, f := range files {
		if f.CaseID != "case-1" || f.FileHash == "" {
			t.Errorf("bad record: %+v", f)
		}
	}

	empty, err := s.ListByCase("case-none")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown case: got %d files, want 0", len(empty))
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 3 {
		t.Errorf("stats files: got %d, want 3", stats.Files)
	}
	if stats.TotalBytes != int64(len("aaaa")+len("bbbbbb")+len("cc")) {
		t.Errorf("stats bytes: got %d", stats.TotalBytes)
	}
}
