package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustShare creates a share or fails the test.
func mustShare(t *testing.T, s *Store, target, datasetID string, overlays ...string) Share {
	t.Helper()
	sh, err := s.CreateShare(context.Background(), target, datasetID, overlays)
	if err != nil {
		t.Fatalf("CreateShare(%q) failed: %v", target, err)
	}
	return sh
}
