package models

import (
	"fmt"
	"time"
)

// Transfer outcome statuses. Terminal per item; no item is revisited in a run.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// TransferRecord is the outcome of attempting to move one media item.
// A record is never mutated after being added to the report.
type TransferRecord struct {
	SourceID      string    `json:"source_id"`
	Filename      string    `json:"filename,omitempty"`
	DestinationID string    `json:"destination_id,omitempty"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Note          string    `json:"note,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// AlbumRecord is the outcome of mirroring one source album.
type AlbumRecord struct {
	SourceID      string `json:"source_id"`
	Title         string `json:"title"`
	DestinationID string `json:"destination_id,omitempty"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// TransferReport aggregates a single transfer run. It is owned exclusively by
// the run that produced it; there is a single writer and no concurrent access.
type TransferReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Records   []TransferRecord `json:"records"`

	AlbumsTotal     int           `json:"albums_total"`
	AlbumsSucceeded int           `json:"albums_succeeded"`
	AlbumsFailed    int           `json:"albums_failed"`
	AlbumRecords    []AlbumRecord `json:"album_records,omitempty"`

	Summary string `json:"summary,omitempty"`
}

// NewTransferReport creates an empty report stamped with the start time.
func NewTransferReport() *TransferReport {
	return &TransferReport{
		StartedAt: time.Now(),
		Records:   []TransferRecord{},
	}
}

// AddRecord appends a finalized item record and updates the counters.
// Encounter order is preserved.
func (r *TransferReport) AddRecord(rec TransferRecord) {
	r.Records = append(r.Records, rec)
	r.Total++
	switch rec.Status {
	case StatusSucceeded:
		r.Succeeded++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}

// AddAlbumRecord appends a finalized album record and updates the counters.
func (r *TransferReport) AddAlbumRecord(rec AlbumRecord) {
	r.AlbumRecords = append(r.AlbumRecords, rec)
	r.AlbumsTotal++
	if rec.Status == StatusSucceeded {
		r.AlbumsSucceeded++
	} else {
		r.AlbumsFailed++
	}
}

// Finalize stamps the end time and builds the summary line.
func (r *TransferReport) Finalize() {
	r.FinishedAt = time.Now()
	r.Summary = fmt.Sprintf("Transferred %d of %d items (%d skipped, %d failed), mirrored %d of %d albums",
		r.Succeeded, r.Total, r.Skipped, r.Failed, r.AlbumsSucceeded, r.AlbumsTotal)
}
