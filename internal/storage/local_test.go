package storage

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func randomSuffix() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalStorage() error = %v", err)
	}
	return storage
}

func TestNewLocalStorage(t *testing.T) {
	t.Run("creates directories if not exist", func(t *testing.T) {
		dataDir := filepath.Join(os.TempDir(), "voicemix_test_"+randomSuffix())
		defer func() { _ = os.RemoveAll(dataDir) }()

		storage, err := NewLocalStorage(dataDir, "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		for _, dir := range []string{storage.TempDir(), storage.ObjectsDir()} {
			info, err := os.Stat(dir)
			if err != nil {
				t.Fatalf("directory not created: %v", err)
			}
			if !info.IsDir() {
				t.Error("expected directory, got file")
			}
		}
	})

	t.Run("uses default directory when empty", func(t *testing.T) {
		storage, err := NewLocalStorage("", "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}

		expected := filepath.Join(os.TempDir(), "voicemix", "tmp")
		if storage.TempDir() != expected {
			t.Errorf("TempDir() = %v, want %v", storage.TempDir(), expected)
		}
	})
}

func TestLocalStorage_SaveTemp(t *testing.T) {
	storage := setupTestStorage(t)

	t.Run("saves data to temp file", func(t *testing.T) {
		ctx := context.Background()
		data := bytes.NewReader([]byte("test data"))

		path, err := storage.SaveTemp(ctx, "test", data)
		if err != nil {
			t.Fatalf("SaveTemp() error = %v", err)
		}

		if !strings.Contains(path, "test_") {
			t.Errorf("path %s should contain 'test_'", path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read saved file: %v", err)
		}
		if string(content) != "test data" {
			t.Errorf("got %q, want %q", string(content), "test data")
		}
	})

	t.Run("sanitizes name hint", func(t *testing.T) {
		path, err := storage.SaveTemp(context.Background(), "../weird name!.mp3", bytes.NewReader([]byte("x")))
		if err != nil {
			t.Fatalf("SaveTemp() error = %v", err)
		}
		if strings.Contains(filepath.Base(path), "..") {
			t.Errorf("name hint not sanitized: %s", path)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.SaveTemp(ctx, "test", bytes.NewReader([]byte("x")))
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}

func TestLocalStorage_LoadTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	path, err := storage.SaveTemp(ctx, "load", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("SaveTemp() error = %v", err)
	}

	rc, err := storage.LoadTemp(ctx, path)
	if err != nil {
		t.Fatalf("LoadTemp() error = %v", err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(content) != "payload" {
		t.Errorf("got %q, want %q", string(content), "payload")
	}
}

func TestLocalStorage_CleanupTemp(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	path, _ := storage.SaveTemp(ctx, "cleanup", bytes.NewReader([]byte("x")))

	// Missing files are not an error
	err := storage.CleanupTemp(ctx, []string{path, filepath.Join(storage.TempDir(), "missing")})
	if err != nil {
		t.Fatalf("CleanupTemp() error = %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected temp file to be removed")
	}
}

func TestLocalStorage_Upload(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	t.Run("stores object and returns URL", func(t *testing.T) {
		url, err := storage.Upload(ctx, "clips/abc/voice.mp3", bytes.NewReader([]byte("audio")))
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if url != "/files/clips/abc/voice.mp3" {
			t.Errorf("unexpected URL: %s", url)
		}

		rc, err := storage.Download(ctx, "clips/abc/voice.mp3")
		if err != nil {
			t.Fatalf("Download() error = %v", err)
		}
		defer func() { _ = rc.Close() }()
		content, _ := io.ReadAll(rc)
		if string(content) != "audio" {
			t.Errorf("got %q, want %q", string(content), "audio")
		}
	})

	t.Run("strips path traversal from keys", func(t *testing.T) {
		url, err := storage.Upload(ctx, "../../etc/passwd", bytes.NewReader([]byte("x")))
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if url != "/files/etc/passwd" {
			t.Errorf("unexpected URL: %s", url)
		}
		if _, err := os.Stat(filepath.Join(storage.ObjectsDir(), "etc", "passwd")); err != nil {
			t.Errorf("object not stored under objects dir: %v", err)
		}
	})

	t.Run("prepends base URL", func(t *testing.T) {
		withBase, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/")
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}
		url, err := withBase.Upload(ctx, "a.mp3", bytes.NewReader([]byte("x")))
		if err != nil {
			t.Fatalf("Upload() error = %v", err)
		}
		if url != "http://localhost:8080/files/a.mp3" {
			t.Errorf("unexpected URL: %s", url)
		}
	})
}

func TestLocalStorage_Delete(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if _, err := storage.Upload(ctx, "audio/aud-1.mp3", bytes.NewReader([]byte("audio"))); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if err := storage.Delete(ctx, "audio/aud-1.mp3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Download(ctx, "audio/aud-1.mp3"); err == nil {
		t.Fatal("expected deleted object to be gone")
	}

	// Deleting a missing object is not an error
	if err := storage.Delete(ctx, "audio/aud-1.mp3"); err != nil {
		t.Errorf("Delete() of missing object = %v", err)
	}
}

func TestLocalStorage_Download_Missing(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Download(context.Background(), "missing.mp3")
	if err == nil {
		t.Fatal("expected error for missing object")
	}
}
