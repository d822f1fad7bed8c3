package storage

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
)

// File is the persistent-scoped adapter: one file per key under a directory,
// surviving process restarts. Keys are prefix-namespaced and encoded so any
// key string maps to a safe file name. All filesystem errors are swallowed.
type File struct {
	dir    string
	prefix string
	hook   ErrorHook
}

// NewFile creates a file adapter rooted at dir. The directory is created on
// first write, not at construction.
func NewFile(dir, prefix string, hook ErrorHook) *File {
	return &File{
		dir:    dir,
		prefix: prefix,
		hook:   hook,
	}
}

func (f *File) path(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(f.prefix + ":" + key))
	return filepath.Join(f.dir, name+".item")
}

// GetItem reads the value stored for key. Missing or unreadable files report
// absent.
func (f *File) GetItem(_ context.Context, key string) (string, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			f.hook.emit("get", key, err)
		}
		return "", false
	}
	return string(data), true
}

// SetItem writes value for key, creating the directory if needed.
func (f *File) SetItem(_ context.Context, key, value string) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		f.hook.emit("set", key, err)
		return
	}
	if err := os.WriteFile(f.path(key), []byte(value), 0o644); err != nil {
		f.hook.emit("set", key, err)
	}
}

// RemoveItem deletes the file for key. A missing file is not a failure.
func (f *File) RemoveItem(_ context.Context, key string) {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		f.hook.emit("remove", key, err)
	}
}
