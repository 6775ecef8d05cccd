package types

import "time"

// Document is an uploaded club file (image or PDF).
type Document struct {
	// Filename is the stored name, unique within the document bucket.
	Filename string `json:"filename"`

	// Path is the server-relative download path.
	Path string `json:"path"`

	// URL is the absolute download URL when the request host is known.
	URL string `json:"url,omitempty"`

	ContentType string    `json:"type"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
}

// SiteHome is the editable landing page content. Keys are free-form.
type SiteHome map[string]any
