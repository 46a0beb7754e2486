package postgres

import (
	"context"

	"dicomcat/internal/model"
	"dicomcat/internal/repository"
)

// Read-only finders backing the query API. Not-found is reported as
// sql.ErrNoRows from the row scan; callers test it with repository.IsNotFound.

func (r *CatalogPostgres) ListPatients(ctx context.Context, q repository.DBTX) ([]model.Patient, error) {
	const qList = `SELECT id_patient, patient_name, created_date FROM patients ORDER BY id_patient`
	rows, err := q.QueryContext(ctx, qList)
	if err != nil {
		return nil, classify("list patients", err)
	}
	defer rows.Close()

	items := make([]model.Patient, 0)
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(&p.ID, &p.PatientName, &p.CreatedDate); err != nil {
			return nil, classify("scan patient", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list patients", err)
	}
	return items, nil
}

func (r *CatalogPostgres) GetPatient(ctx context.Context, q repository.DBTX, id int64) (*model.Patient, error) {
	const qGet = `SELECT id_patient, patient_name, created_date FROM patients WHERE id_patient = $1`
	var p model.Patient
	if err := q.QueryRowContext(ctx, qGet, id).Scan(&p.ID, &p.PatientName, &p.CreatedDate); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *CatalogPostgres) ListStudies(ctx context.Context, q repository.DBTX) ([]model.Study, error) {
	const qList = `SELECT id_study, id_patient, study_name, study_date, created_date FROM studies ORDER BY id_study`
	return r.scanStudies(ctx, q, qList)
}

func (r *CatalogPostgres) ListStudiesByPatient(ctx context.Context, q repository.DBTX, patientID int64) ([]model.Study, error) {
	const qList = `SELECT id_study, id_patient, study_name, study_date, created_date FROM studies WHERE id_patient = $1 ORDER BY id_study`
	return r.scanStudies(ctx, q, qList, patientID)
}

func (r *CatalogPostgres) scanStudies(ctx context.Context, q repository.DBTX, query string, args ...any) ([]model.Study, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list studies", err)
	}
	defer rows.Close()

	items := make([]model.Study, 0)
	for rows.Next() {
		var s model.Study
		if err := rows.Scan(&s.ID, &s.PatientID, &s.StudyName, &s.StudyDate, &s.CreatedDate); err != nil {
			return nil, classify("scan study", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list studies", err)
	}
	return items, nil
}

func (r *CatalogPostgres) GetStudy(ctx context.Context, q repository.DBTX, id int64) (*model.Study, error) {
	const qGet = `SELECT id_study, id_patient, study_name, study_date, created_date FROM studies WHERE id_study = $1`
	var s model.Study
	if err := q.QueryRowContext(ctx, qGet, id).Scan(&s.ID, &s.PatientID, &s.StudyName, &s.StudyDate, &s.CreatedDate); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CatalogPostgres) ListSeries(ctx context.Context, q repository.DBTX) ([]model.Series, error) {
	const qList = `SELECT id_series, id_patient, id_study, id_modality, series_name, created_date FROM series ORDER BY id_series`
	return r.scanSeries(ctx, q, qList)
}

func (r *CatalogPostgres) ListSeriesByStudy(ctx context.Context, q repository.DBTX, studyID int64) ([]model.Series, error) {
	const qList = `SELECT id_series, id_patient, id_study, id_modality, series_name, created_date FROM series WHERE id_study = $1 ORDER BY id_series`
	return r.scanSeries(ctx, q, qList, studyID)
}

func (r *CatalogPostgres) scanSeries(ctx context.Context, q repository.DBTX, query string, args ...any) ([]model.Series, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list series", err)
	}
	defer rows.Close()

	items := make([]model.Series, 0)
	for rows.Next() {
		var s model.Series
		if err := rows.Scan(&s.ID, &s.PatientID, &s.StudyID, &s.ModalityID, &s.SeriesName, &s.CreatedDate); err != nil {
			return nil, classify("scan series", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list series", err)
	}
	return items, nil
}

func (r *CatalogPostgres) GetSeries(ctx context.Context, q repository.DBTX, id int64) (*model.Series, error) {
	const qGet = `SELECT id_series, id_patient, id_study, id_modality, series_name, created_date FROM series WHERE id_series = $1`
	var s model.Series
	if err := q.QueryRowContext(ctx, qGet, id).Scan(&s.ID, &s.PatientID, &s.StudyID, &s.ModalityID, &s.SeriesName, &s.CreatedDate); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *CatalogPostgres) GetModality(ctx context.Context, q repository.DBTX, id int64) (*model.Modality, error) {
	const qGet = `SELECT id_modality, name FROM modalities WHERE id_modality = $1`
	var m model.Modality
	if err := q.QueryRowContext(ctx, qGet, id).Scan(&m.ID, &m.Name); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *CatalogPostgres) ListFiles(ctx context.Context, q repository.DBTX) ([]model.File, error) {
	const qList = `SELECT id_file, id_patient, id_study, id_series, file_path, created_date FROM files ORDER BY created_date DESC`
	return r.scanFiles(ctx, q, qList)
}

func (r *CatalogPostgres) ListFilesBySeries(ctx context.Context, q repository.DBTX, seriesID int64) ([]model.File, error) {
	const qList = `SELECT id_file, id_patient, id_study, id_series, file_path, created_date FROM files WHERE id_series = $1 ORDER BY created_date DESC`
	return r.scanFiles(ctx, q, qList, seriesID)
}

func (r *CatalogPostgres) scanFiles(ctx context.Context, q repository.DBTX, query string, args ...any) ([]model.File, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list files", err)
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.PatientID, &f.StudyID, &f.SeriesID, &f.FilePath, &f.CreatedDate); err != nil {
			return nil, classify("scan file", err)
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list files", err)
	}
	return items, nil
}

func (r *CatalogPostgres) GetFile(ctx context.Context, q repository.DBTX, id int64) (*model.File, error) {
	const qGet = `SELECT id_file, id_patient, id_study, id_series, file_path, created_date FROM files WHERE id_file = $1`
	var f model.File
	if err := q.QueryRowContext(ctx, qGet, id).Scan(&f.ID, &f.PatientID, &f.StudyID, &f.SeriesID, &f.FilePath, &f.CreatedDate); err != nil {
		return nil, err
	}
	return &f, nil
}
