package model

import "time"

// Metadata is the mutable, user-supplied part of a document.
// Recipient, Origin and Place are never empty; Reason is optional.
type Metadata struct {
	Recipient string  `json:"recipient"`
	Origin    string  `json:"origin"`
	Date      Date    `json:"date"`
	Place     string  `json:"place"`
	Reason    *string `json:"reason"`
}

// Document is a stored document record.
type Document struct {
	ID int64 `json:"id"`
	Metadata
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentFile is a file attached to a document at creation time.
// Filename is generated by the server; OriginalName comes from the client and is untrusted.
type DocumentFile struct {
	ID           int64     `json:"id"`
	DocumentID   int64     `json:"document_id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileRef is the file descriptor nested in a DocumentSummary.
type FileRef struct {
	ID           int64  `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
}

// DocumentSummary is a document enriched with its attached files.
type DocumentSummary struct {
	ID        int64     `json:"id"`
	Recipient string    `json:"recipient"`
	Origin    string    `json:"origin"`
	Date      Date      `json:"date"`
	Place     string    `json:"place"`
	Reason    *string   `json:"reason"`
	Files     []FileRef `json:"files"`
}

// ListFilter narrows a document listing. Zero values mean "no filter".
// Recipient and Place are substring matches; DateFrom and DateTo are inclusive.
type ListFilter struct {
	Recipient string
	Place     string
	DateFrom  *Date
	DateTo    *Date
}
