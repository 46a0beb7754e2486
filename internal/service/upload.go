package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"dicomcat/internal/model"
	"dicomcat/internal/repository"
)

const (
	// maxUploadAttempts bounds the whole-transaction retry loop for
	// lock-conflict failures.
	maxUploadAttempts = 3
	// retryDelayUnit is multiplied by the attempt number, giving a
	// linearly increasing backoff between attempts.
	retryDelayUnit = time.Second

	defaultStudyName  = "Unknown Study"
	defaultSeriesName = "Unknown Series"
)

// UploadInput is the logical shape of one upload request.
type UploadInput struct {
	PatientName       string `json:"patientName"`
	StudyDate         string `json:"studyDate"`
	StudyDescription  string `json:"studyDescription"`
	SeriesDescription string `json:"seriesDescription"`
	Modality          string `json:"modality"`
	FilePath          string `json:"filePath"`
}

// ValidationError reports malformed upload input. It is returned before a
// transaction is opened and is never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Msg)
}

// UploadError wraps any non-retriable failure of the upload pipeline,
// preserving the original cause.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to process DICOM upload: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// UploadService materializes the Patient -> Study -> Modality -> Series ->
// File graph for one upload as a single atomic unit.
type UploadService interface {
	ProcessUpload(ctx context.Context, in UploadInput) (*model.UploadResult, error)
}

type uploadService struct {
	db         *sql.DB
	repo       repository.CatalogRepository
	uploadRoot string

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewUploadService constructs an UploadService over the given pool and
// repository. uploadRoot is the configured staging directory; persisted
// file paths are stored relative to it.
func NewUploadService(db *sql.DB, repo repository.CatalogRepository, uploadRoot string) UploadService {
	return &uploadService{
		db:         db,
		repo:       repo,
		uploadRoot: uploadRoot,
		sleep:      time.Sleep,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ProcessUpload validates the input, then runs the find-or-create chain and
// the file insert inside one serializable transaction. Lock conflicts
// (deadlock or serialization failure) roll the transaction back and retry
// the whole sequence with linear backoff, up to maxUploadAttempts; any
// other failure surfaces immediately as an UploadError.
func (s *uploadService) ProcessUpload(ctx context.Context, in UploadInput) (*model.UploadResult, error) {
	if err := validateUploadInput(in); err != nil {
		return nil, err
	}

	studyDate, err := ParseStudyDate(in.StudyDate)
	if err != nil {
		return nil, &ValidationError{Field: "studyDate", Msg: err.Error()}
	}

	relPath, err := s.relativizePath(in.FilePath)
	if err != nil {
		return nil, &ValidationError{Field: "filePath", Msg: err.Error()}
	}

	for attempt := 1; ; attempt++ {
		res, err := s.runTransaction(ctx, in, studyDate, relPath)
		if err == nil {
			return res, nil
		}

		if repository.IsRetriableLock(err) && attempt < maxUploadAttempts {
			delay := time.Duration(attempt) * retryDelayUnit
			log.Printf("upload: lock conflict, retry attempt %d of %d in %s", attempt+1, maxUploadAttempts, delay)
			s.sleep(delay)
			continue
		}

		return nil, &UploadError{Err: err}
	}
}

// runTransaction performs one attempt of the pipeline. The entity
// operations run strictly in order because each later natural key depends
// on an earlier resolved id.
func (s *uploadService) runTransaction(ctx context.Context, in UploadInput, studyDate time.Time, relPath string) (*model.UploadResult, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer safeRollback(tx)

	now := s.now()

	patient, err := s.repo.FindOrCreatePatient(ctx, tx, &model.Patient{
		PatientName: in.PatientName,
		CreatedDate: now,
	})
	if err != nil {
		return nil, err
	}

	studyName := in.StudyDescription
	if studyName == "" {
		studyName = defaultStudyName
	}
	study, err := s.repo.FindOrCreateStudy(ctx, tx, &model.Study{
		PatientID:   patient.ID,
		StudyName:   studyName,
		StudyDate:   studyDate,
		CreatedDate: now,
	})
	if err != nil {
		return nil, err
	}

	modality, err := s.repo.FindOrCreateModality(ctx, tx, &model.Modality{
		Name: in.Modality,
	})
	if err != nil {
		return nil, err
	}

	seriesName := in.SeriesDescription
	if seriesName == "" {
		seriesName = defaultSeriesName
	}
	series, err := s.repo.FindOrCreateSeries(ctx, tx, &model.Series{
		PatientID:   patient.ID,
		StudyID:     study.ID,
		ModalityID:  modality.ID,
		SeriesName:  seriesName,
		CreatedDate: now,
	})
	if err != nil {
		return nil, err
	}

	file, err := s.repo.CreateFile(ctx, tx, &model.File{
		PatientID:   patient.ID,
		StudyID:     study.ID,
		SeriesID:    series.ID,
		FilePath:    relPath,
		CreatedDate: now,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		// Under serializable isolation a conflict may only surface here.
		return nil, repository.Classify("commit transaction", err)
	}

	return &model.UploadResult{
		FileID:            file.ID,
		PatientID:         patient.ID,
		StudyID:           study.ID,
		SeriesID:          series.ID,
		FilePath:          file.FilePath,
		PatientName:       patient.PatientName,
		StudyDate:         FormatStudyDateISO(study.StudyDate),
		StudyDescription:  study.StudyName,
		SeriesDescription: series.SeriesName,
		Modality:          modality.Name,
		CreatedDate:       file.CreatedDate.Format(time.RFC3339),
	}, nil
}

// relativizePath resolves the request's path against the upload root and
// strips the root prefix, so absolute paths never leak into the catalog.
func (s *uploadService) relativizePath(p string) (string, error) {
	full := filepath.Join(s.uploadRoot, p)
	rel, err := filepath.Rel(s.uploadRoot, full)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the upload root", p)
	}
	return filepath.ToSlash(rel), nil
}

func validateUploadInput(in UploadInput) error {
	switch {
	case in.PatientName == "":
		return &ValidationError{Field: "patientName", Msg: "is required"}
	case in.Modality == "":
		return &ValidationError{Field: "modality", Msg: "is required"}
	case in.FilePath == "":
		return &ValidationError{Field: "filePath", Msg: "is required"}
	case in.StudyDate == "":
		return &ValidationError{Field: "studyDate", Msg: "is required"}
	}
	return nil
}

// safeRollback rolls the transaction back, tolerating one that already
// finished: a retry after commit-time failure must not trip over the
// rollback of a completed transaction.
func safeRollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("upload: rollback error: %v", err)
	}
}
