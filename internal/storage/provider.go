// Package storage defines the inbox directory abstraction.
package storage

import "time"

// FileInfo describes a candidate import file in the inbox.
type FileInfo struct {
	Name    string
	ModTime time.Time
}

// Provider is the interface for inbox file operations.
type Provider interface {
	// List returns metadata for every .json file directly in the inbox.
	List() ([]FileInfo, error)
	// Read returns the raw bytes of the file named name (relative to the inbox).
	Read(name string) ([]byte, error)
	// Remove deletes the file named name (relative to the inbox).
	Remove(name string) error
}
