// Package models defines the index-level types shared by the store, the API
// and the MCP server.
package models

import "time"

// Note is the indexed summary of one stored document. The document body is
// never carried here; callers load it through the store.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	FolderRef  string    `json:"folder_ref,omitempty"`
	Category   string    `json:"category"`
	Subject    string    `json:"subject,omitempty"`
	Starred    bool      `json:"starred"`
	Public     bool      `json:"public"`
	Words      int       `json:"words"`
	Characters int       `json:"characters"`
	Checksum   string    `json:"checksum"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileInfo is what the vault knows about a note file without decoding it.
type FileInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchHit is one full-text search result.
type SearchHit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// ListFilter narrows a note listing.
type ListFilter struct {
	Tag      string
	Category string
	Folder   string
	Starred  bool
	Sort     string // "updated" (default) or "title"
	Limit    int
	Offset   int
}
