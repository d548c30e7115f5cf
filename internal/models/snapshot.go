package models

import "time"

// GradeSnapshot is an immutable copy of one grade row taken at archive time.
// The store enforces uniqueness on (student_id, subject_id, academic_year_id,
// quarter); inserts use conflict-ignore so re-archival is idempotent.
type GradeSnapshot struct {
	ID             string    `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Quarter        int       `db:"quarter" json:"quarter"`
	Score          float64   `db:"score" json:"score"`
	SnapshotAt     time.Time `db:"snapshot_at" json:"snapshot_at"`
}
