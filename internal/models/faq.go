// Package models defines the domain types for the FAQ service.
package models

import "time"

// Faq is one question/answer record. ID is assigned by the store.
type Faq struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
}

// FileMetadata is a lightweight description of a stored file.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
