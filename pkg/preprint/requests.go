package preprint

import "io"

// SubmitRequest contains parameters for submitting a preprint
type SubmitRequest struct {
	Title      string
	Abstract   string
	Category   string
	CourseCode string
	Authors    string
	Faculty    string

	// File holds the PDF bytes. A nil reader or zero bytes fails validation.
	File             io.Reader
	OriginalFilename string

	// MintDOI assigns an identifier right after the record is inserted
	MintDOI bool
}

// ListRequest contains parameters for listing preprints
type ListRequest struct {
	Query    string
	Category string
}
