package repository

import (
	"context"
	"database/sql"

	"dicomcat/internal/model"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Find-or-create operations are always called with a *sql.Tx supplied by the
// upload pipeline; read operations usually run on the pool directly.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CatalogRepository defines data access for the DICOM catalog using SQL
// queries only. No business logic here — strictly persistence operations.
//
// The FindOrCreate* operations look up a row by its natural key with a
// locking read inside the caller's transaction and insert the candidate on a
// miss. They perform at most one insert per call and return the resolved row
// with its id populated. CreateFile never looks up: files are distinct
// artifacts even when all other attributes match.
type CatalogRepository interface {
	FindOrCreatePatient(ctx context.Context, q DBTX, p *model.Patient) (*model.Patient, error)
	FindOrCreateStudy(ctx context.Context, q DBTX, s *model.Study) (*model.Study, error)
	FindOrCreateModality(ctx context.Context, q DBTX, m *model.Modality) (*model.Modality, error)
	FindOrCreateSeries(ctx context.Context, q DBTX, s *model.Series) (*model.Series, error)
	CreateFile(ctx context.Context, q DBTX, f *model.File) (*model.File, error)

	// ListFileRecords returns the flat joined projection of every file,
	// ordered by creation time descending.
	ListFileRecords(ctx context.Context, q DBTX) ([]model.FileRecord, error)
	// FilePathExists reports whether a file row with the given path exists.
	FilePathExists(ctx context.Context, q DBTX, filePath string) (bool, error)

	ListPatients(ctx context.Context, q DBTX) ([]model.Patient, error)
	GetPatient(ctx context.Context, q DBTX, id int64) (*model.Patient, error)
	ListStudies(ctx context.Context, q DBTX) ([]model.Study, error)
	GetStudy(ctx context.Context, q DBTX, id int64) (*model.Study, error)
	ListStudiesByPatient(ctx context.Context, q DBTX, patientID int64) ([]model.Study, error)
	ListSeries(ctx context.Context, q DBTX) ([]model.Series, error)
	GetSeries(ctx context.Context, q DBTX, id int64) (*model.Series, error)
	ListSeriesByStudy(ctx context.Context, q DBTX, studyID int64) ([]model.Series, error)
	GetModality(ctx context.Context, q DBTX, id int64) (*model.Modality, error)
	ListFiles(ctx context.Context, q DBTX) ([]model.File, error)
	GetFile(ctx context.Context, q DBTX, id int64) (*model.File, error)
	ListFilesBySeries(ctx context.Context, q DBTX, seriesID int64) ([]model.File, error)
}
