package models

import "time"

// AcademicYear models one school year and its lifecycle flags.
//
// At most one year carries is_current = true; is_archived is a one-way flag
// set by the archive transition and never cleared.
type AcademicYear struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	IsCurrent  bool       `db:"is_current" json:"is_current"`
	IsArchived bool       `db:"is_archived" json:"is_archived"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	ArchivedBy *string    `db:"archived_by" json:"archived_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// YearStatus is the derived lifecycle view exposed to callers.
type YearStatus struct {
	IsCurrent  bool `json:"is_current"`
	IsArchived bool `json:"is_archived"`
	IsWritable bool `json:"is_writable"`
	IsReadOnly bool `json:"is_read_only"`
}

// StatusOf derives the lifecycle view from a year's flags.
func StatusOf(year *AcademicYear) YearStatus {
	return YearStatus{
		IsCurrent:  year.IsCurrent,
		IsArchived: year.IsArchived,
		IsWritable: year.IsCurrent && !year.IsArchived,
		IsReadOnly: year.IsArchived || !year.IsCurrent,
	}
}

// ArchiveResult reports the outcome of an archive transition.
type ArchiveResult struct {
	YearID        string `json:"year_id"`
	SnapshotCount int    `json:"snapshot_count"`
}

// YearFilter defines filters for the year listing endpoint.
type YearFilter struct {
	IsCurrent  *bool
	IsArchived *bool
	Page       int
	PageSize   int
}
