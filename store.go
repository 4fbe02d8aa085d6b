package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// ===========================
// JSON Document Store
// ===========================

// Documents are re-read from disk on every operation and written back
// wholesale, so external edits to the data directory are picked up without
// a restart.

var storeDir = "data"

func SetStoreDir(dir string) {
	storeDir = dir
}

func StorePath(parts ...string) string {
	return filepath.Join(append([]string{storeDir}, parts...)...)
}

// ReadJSONFile loads path into v. Returns false with a nil error when the
// file does not exist yet.
func ReadJSONFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func WriteJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func RemoveJSONFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ListJSONFiles returns the full paths of all .json files directly under dir.
func ListJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
