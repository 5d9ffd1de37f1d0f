package uploads

import (
	"github.com/google/uuid"
)

// StoredFile describes a file written to storage.
type StoredFile struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Key      string    `json:"key"`
	URL      string    `json:"url"`
	Size     int64     `json:"size"`
	MimeType string    `json:"mimeType"`
}
