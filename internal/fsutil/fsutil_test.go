package fsutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !FileExists(file) {
		t.Error("FileExists returned false for existing file")
	}
	if FileExists(filepath.Join(dir, "missing.txt")) {
		t.Error("FileExists returned true for missing file")
	}
	if FileExists(dir) {
		t.Error("FileExists returned true for a directory")
	}
	if !DirExists(dir) {
		t.Error("DirExists returned false for existing directory")
	}
}

func TestWriteJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	payload := map[string]any{"status": "PASS", "count": 3}
	if err := WriteJSONFile(path, payload); err != nil {
		t.Fatalf("WriteJSONFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["status"] != "PASS" {
		t.Errorf("status = %v, want PASS", got["status"])
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}
