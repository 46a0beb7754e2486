package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dicomcat/internal/model"
	"dicomcat/internal/repository"
)

// CatalogPostgres is a PostgreSQL implementation of repository.CatalogRepository.
// It uses database/sql with parameterized queries and contains no business
// logic. All methods take an explicit DBTX so that the find-or-create chain
// runs on whatever transaction the caller opened; there is no ambient
// transaction state.
type CatalogPostgres struct{}

// NewCatalogPostgres creates a new CatalogPostgres repository.
func NewCatalogPostgres() *CatalogPostgres {
	return &CatalogPostgres{}
}

var _ repository.CatalogRepository = (*CatalogPostgres)(nil)

// classify tags store failures by SQLSTATE; see repository.Classify.
var classify = repository.Classify

// FindOrCreatePatient resolves a patient by name, inserting it if absent.
// The SELECT takes a row lock so a concurrent pipeline resolving the same
// name serializes behind this transaction instead of double-inserting.
func (r *CatalogPostgres) FindOrCreatePatient(ctx context.Context, q repository.DBTX, p *model.Patient) (*model.Patient, error) {
	if p == nil || p.PatientName == "" {
		return nil, &repository.ValidationError{Field: "PatientName", Msg: "is required"}
	}

	const qSel = `
		SELECT id_patient, patient_name, created_date
		FROM patients
		WHERE patient_name = $1
		FOR UPDATE
	`
	var out model.Patient
	err := q.QueryRowContext(ctx, qSel, p.PatientName).Scan(&out.ID, &out.PatientName, &out.CreatedDate)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("find patient", err)
	}

	created := p.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}
	const qIns = `
		INSERT INTO patients (patient_name, created_date)
		VALUES ($1, $2)
		RETURNING id_patient, patient_name, created_date
	`
	if err := q.QueryRowContext(ctx, qIns, p.PatientName, created).Scan(&out.ID, &out.PatientName, &out.CreatedDate); err != nil {
		return nil, classify("create patient", err)
	}
	return &out, nil
}

// FindOrCreateStudy resolves a study by (patient id, study date).
func (r *CatalogPostgres) FindOrCreateStudy(ctx context.Context, q repository.DBTX, s *model.Study) (*model.Study, error) {
	if s == nil || s.PatientID == 0 {
		return nil, &repository.ValidationError{Field: "PatientID", Msg: "is required"}
	}
	if s.StudyDate.IsZero() {
		return nil, &repository.ValidationError{Field: "StudyDate", Msg: "is required"}
	}

	const qSel = `
		SELECT id_study, id_patient, study_name, study_date, created_date
		FROM studies
		WHERE id_patient = $1 AND study_date = $2
		FOR UPDATE
	`
	var out model.Study
	err := q.QueryRowContext(ctx, qSel, s.PatientID, s.StudyDate).
		Scan(&out.ID, &out.PatientID, &out.StudyName, &out.StudyDate, &out.CreatedDate)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("find study", err)
	}

	created := s.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}
	const qIns = `
		INSERT INTO studies (id_patient, study_name, study_date, created_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id_study, id_patient, study_name, study_date, created_date
	`
	if err := q.QueryRowContext(ctx, qIns, s.PatientID, s.StudyName, s.StudyDate, created).
		Scan(&out.ID, &out.PatientID, &out.StudyName, &out.StudyDate, &out.CreatedDate); err != nil {
		return nil, classify("create study", err)
	}
	return &out, nil
}

// FindOrCreateModality resolves a modality by name.
func (r *CatalogPostgres) FindOrCreateModality(ctx context.Context, q repository.DBTX, m *model.Modality) (*model.Modality, error) {
	if m == nil || m.Name == "" {
		return nil, &repository.ValidationError{Field: "Name", Msg: "is required"}
	}

	const qSel = `
		SELECT id_modality, name
		FROM modalities
		WHERE name = $1
		FOR UPDATE
	`
	var out model.Modality
	err := q.QueryRowContext(ctx, qSel, m.Name).Scan(&out.ID, &out.Name)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("find modality", err)
	}

	const qIns = `
		INSERT INTO modalities (name)
		VALUES ($1)
		RETURNING id_modality, name
	`
	if err := q.QueryRowContext(ctx, qIns, m.Name).Scan(&out.ID, &out.Name); err != nil {
		return nil, classify("create modality", err)
	}
	return &out, nil
}

// FindOrCreateSeries resolves a series by (study id, series name, modality id).
func (r *CatalogPostgres) FindOrCreateSeries(ctx context.Context, q repository.DBTX, s *model.Series) (*model.Series, error) {
	if s == nil || s.PatientID == 0 || s.StudyID == 0 || s.ModalityID == 0 {
		return nil, &repository.ValidationError{Field: "PatientID/StudyID/ModalityID", Msg: "are required"}
	}

	const qSel = `
		SELECT id_series, id_patient, id_study, id_modality, series_name, created_date
		FROM series
		WHERE id_study = $1 AND series_name = $2 AND id_modality = $3
		FOR UPDATE
	`
	var out model.Series
	err := q.QueryRowContext(ctx, qSel, s.StudyID, s.SeriesName, s.ModalityID).
		Scan(&out.ID, &out.PatientID, &out.StudyID, &out.ModalityID, &out.SeriesName, &out.CreatedDate)
	if err == nil {
		return &out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("find series", err)
	}

	created := s.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}
	const qIns = `
		INSERT INTO series (id_patient, id_study, id_modality, series_name, created_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id_series, id_patient, id_study, id_modality, series_name, created_date
	`
	if err := q.QueryRowContext(ctx, qIns, s.PatientID, s.StudyID, s.ModalityID, s.SeriesName, created).
		Scan(&out.ID, &out.PatientID, &out.StudyID, &out.ModalityID, &out.SeriesName, &out.CreatedDate); err != nil {
		return nil, classify("create series", err)
	}
	return &out, nil
}

// CreateFile inserts a new file row unconditionally. Two uploads may share
// every parent entity and still be distinct artifacts, so there is no
// lookup; a duplicate path surfaces as a unique-violation StoreError.
func (r *CatalogPostgres) CreateFile(ctx context.Context, q repository.DBTX, f *model.File) (*model.File, error) {
	if f == nil || f.FilePath == "" {
		return nil, &repository.ValidationError{Field: "FilePath", Msg: "is required"}
	}
	if f.PatientID == 0 || f.StudyID == 0 || f.SeriesID == 0 {
		return nil, &repository.ValidationError{Field: "PatientID/StudyID/SeriesID", Msg: "are required"}
	}

	created := f.CreatedDate
	if created.IsZero() {
		created = time.Now().UTC()
	}
	const qIns = `
		INSERT INTO files (id_patient, id_study, id_series, file_path, created_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id_file, id_patient, id_study, id_series, file_path, created_date
	`
	var out model.File
	if err := q.QueryRowContext(ctx, qIns, f.PatientID, f.StudyID, f.SeriesID, f.FilePath, created).
		Scan(&out.ID, &out.PatientID, &out.StudyID, &out.SeriesID, &out.FilePath, &out.CreatedDate); err != nil {
		return nil, classify("create file", err)
	}
	return &out, nil
}

// ListFileRecords returns every file joined with its patient, study, series,
// and modality, newest first.
func (r *CatalogPostgres) ListFileRecords(ctx context.Context, q repository.DBTX) ([]model.FileRecord, error) {
	const qList = `
		SELECT f.id_file, f.id_patient, f.id_study, f.id_series, f.file_path,
		       p.patient_name, st.study_date, st.study_name, se.series_name, m.name,
		       f.created_date
		FROM files f
		JOIN patients p ON p.id_patient = f.id_patient
		JOIN studies st ON st.id_study = f.id_study
		JOIN series se ON se.id_series = f.id_series
		JOIN modalities m ON m.id_modality = se.id_modality
		ORDER BY f.created_date DESC
	`
	rows, err := q.QueryContext(ctx, qList)
	if err != nil {
		return nil, classify("list file records", err)
	}
	defer rows.Close()

	records := make([]model.FileRecord, 0)
	for rows.Next() {
		var rec model.FileRecord
		if err := rows.Scan(
			&rec.FileID,
			&rec.PatientID,
			&rec.StudyID,
			&rec.SeriesID,
			&rec.FilePath,
			&rec.PatientName,
			&rec.StudyDate,
			&rec.StudyDescription,
			&rec.SeriesDescription,
			&rec.Modality,
			&rec.CreatedDate,
		); err != nil {
			return nil, classify("scan file record", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list file records", err)
	}
	return records, nil
}

// FilePathExists reports whether any file row stores the given path.
func (r *CatalogPostgres) FilePathExists(ctx context.Context, q repository.DBTX, filePath string) (bool, error) {
	const qExists = `SELECT EXISTS (SELECT 1 FROM files WHERE file_path = $1)`
	var exists bool
	if err := q.QueryRowContext(ctx, qExists, filePath).Scan(&exists); err != nil {
		return false, classify("file path exists", err)
	}
	return exists, nil
}
