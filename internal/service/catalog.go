package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dicomcat/internal/model"
	"dicomcat/internal/repository"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrIDRequired = errors.New("id is required")
)

// DicomFileData is the flat joined projection served to clients: one entry
// per file with the owning patient/study/series/modality fields inlined.
// StudyDate keeps the compact YYYYMMDD form; CreatedDate is RFC 3339.
type DicomFileData struct {
	FileID            int64  `json:"id_file"`
	PatientID         int64  `json:"id_patient"`
	StudyID           int64  `json:"id_study"`
	SeriesID          int64  `json:"id_series"`
	FilePath          string `json:"file_path"`
	PatientName       string `json:"patient_name"`
	StudyDate         string `json:"study_date"`
	StudyDescription  string `json:"study_description"`
	SeriesDescription string `json:"series_description"`
	Modality          string `json:"modality"`
	CreatedDate       string `json:"created_date"`
}

// CatalogService exposes the read side of the catalog. It never mutates
// anything; all writes go through the upload pipeline.
type CatalogService interface {
	GetAllDicomFiles(ctx context.Context) ([]DicomFileData, error)
	CheckFilePathExists(ctx context.Context, filePath string) (bool, error)

	Patients(ctx context.Context) ([]model.Patient, error)
	Patient(ctx context.Context, id int64) (*model.Patient, error)
	Studies(ctx context.Context) ([]model.Study, error)
	Study(ctx context.Context, id int64) (*model.Study, error)
	StudiesByPatient(ctx context.Context, patientID int64) ([]model.Study, error)
	AllSeries(ctx context.Context) ([]model.Series, error)
	Series(ctx context.Context, id int64) (*model.Series, error)
	SeriesByStudy(ctx context.Context, studyID int64) ([]model.Series, error)
	Modality(ctx context.Context, id int64) (*model.Modality, error)
	Files(ctx context.Context) ([]model.File, error)
	File(ctx context.Context, id int64) (*model.File, error)
	FilesBySeries(ctx context.Context, seriesID int64) ([]model.File, error)
}

type catalogService struct {
	db   *sql.DB
	repo repository.CatalogRepository
}

// NewCatalogService constructs a CatalogService over the pool. Reads run
// without explicit transactions; they are single-statement queries.
func NewCatalogService(db *sql.DB, repo repository.CatalogRepository) CatalogService {
	return &catalogService{db: db, repo: repo}
}

func (s *catalogService) GetAllDicomFiles(ctx context.Context) ([]DicomFileData, error) {
	records, err := s.repo.ListFileRecords(ctx, s.db)
	if err != nil {
		return nil, err
	}

	out := make([]DicomFileData, 0, len(records))
	for _, rec := range records {
		out = append(out, DicomFileData{
			FileID:            rec.FileID,
			PatientID:         rec.PatientID,
			StudyID:           rec.StudyID,
			SeriesID:          rec.SeriesID,
			FilePath:          rec.FilePath,
			PatientName:       rec.PatientName,
			StudyDate:         FormatStudyDateCompact(rec.StudyDate),
			StudyDescription:  rec.StudyDescription,
			SeriesDescription: rec.SeriesDescription,
			Modality:          rec.Modality,
			CreatedDate:       rec.CreatedDate.Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *catalogService) CheckFilePathExists(ctx context.Context, filePath string) (bool, error) {
	if filePath == "" {
		return false, &ValidationError{Field: "filePath", Msg: "is required"}
	}
	return s.repo.FilePathExists(ctx, s.db, filePath)
}

func (s *catalogService) Patients(ctx context.Context) ([]model.Patient, error) {
	return s.repo.ListPatients(ctx, s.db)
}

func (s *catalogService) Patient(ctx context.Context, id int64) (*model.Patient, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	p, err := s.repo.GetPatient(ctx, s.db, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *catalogService) Studies(ctx context.Context) ([]model.Study, error) {
	return s.repo.ListStudies(ctx, s.db)
}

func (s *catalogService) Study(ctx context.Context, id int64) (*model.Study, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	st, err := s.repo.GetStudy(ctx, s.db, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return st, nil
}

func (s *catalogService) StudiesByPatient(ctx context.Context, patientID int64) ([]model.Study, error) {
	return s.repo.ListStudiesByPatient(ctx, s.db, patientID)
}

func (s *catalogService) AllSeries(ctx context.Context) ([]model.Series, error) {
	return s.repo.ListSeries(ctx, s.db)
}

func (s *catalogService) Series(ctx context.Context, id int64) (*model.Series, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	se, err := s.repo.GetSeries(ctx, s.db, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return se, nil
}

func (s *catalogService) SeriesByStudy(ctx context.Context, studyID int64) ([]model.Series, error) {
	return s.repo.ListSeriesByStudy(ctx, s.db, studyID)
}

func (s *catalogService) Modality(ctx context.Context, id int64) (*model.Modality, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	m, err := s.repo.GetModality(ctx, s.db, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *catalogService) Files(ctx context.Context) ([]model.File, error) {
	return s.repo.ListFiles(ctx, s.db)
}

func (s *catalogService) File(ctx context.Context, id int64) (*model.File, error) {
	if id <= 0 {
		return nil, ErrIDRequired
	}
	f, err := s.repo.GetFile(ctx, s.db, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *catalogService) FilesBySeries(ctx context.Context, seriesID int64) ([]model.File, error) {
	return s.repo.ListFilesBySeries(ctx, s.db, seriesID)
}
