package preprint

import (
	"time"
)

// Status is the review state of a preprint. No operation currently moves a
// record away from StatusSubmitted.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

const (
	// DefaultCategory is used when a submission carries no category.
	DefaultCategory = "uncategorized"

	// InitialVersion is the version of every new record.
	InitialVersion = 1
)

// Preprint is a catalog entry describing one uploaded manuscript.
type Preprint struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Abstract    string    `json:"abstract"`
	Category    string    `json:"category"`
	CourseCode  string    `json:"course_code"`
	Authors     string    `json:"authors"`
	Faculty     string    `json:"faculty"`
	FileLocator string    `json:"pdf_file"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Version     int       `json:"version"`
	DOI         *string   `json:"doi"`
	Status      string    `json:"status"`
}

// HasDOI reports whether an identifier has been assigned.
func (p *Preprint) HasDOI() bool {
	return p.DOI != nil && *p.DOI != ""
}

// ListFilter narrows ListPreprints. Empty fields do not filter.
type ListFilter struct {
	// Query is matched case-insensitively as a substring of title or abstract.
	Query string
	// Category is matched exactly, ignoring case.
	Category string
}
