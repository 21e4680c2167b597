package entity

import (
	"time"

	"github.com/google/uuid"
)

// Run is the persisted summary of one folder conversion.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Folder     string    `json:"folder"`
	TableFile  string    `json:"table_file,omitempty"`
	Status     string    `json:"status"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	RowCount   int       `json:"row_count"`
	Summary    string    `json:"summary"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Failures []RunFailure `json:"failures,omitempty"`
}

// RunFailure records a document that produced no row.
type RunFailure struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}
