package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicomcat/internal/model"
	"dicomcat/internal/repository"
	repoMocks "dicomcat/internal/repository/mocks"
)

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

// newUploadService wires a pipeline over sqlmock with an instrumented sleep
// so retry backoff can be asserted without waiting.
func newUploadService(t *testing.T, repo repository.CatalogRepository) (*uploadService, sqlmock.Sqlmock, *[]time.Duration) {
	t.Helper()
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	slept := []time.Duration{}
	svc := &uploadService{
		db:         db,
		repo:       repo,
		uploadRoot: "/srv/dicom",
		sleep:      func(d time.Duration) { slept = append(slept, d) },
		now:        func() time.Time { return fixedNow },
	}
	return svc, dbMock, &slept
}

func validInput() UploadInput {
	return UploadInput{
		PatientName:       "Doe",
		StudyDate:         "20240115",
		StudyDescription:  "Head CT",
		SeriesDescription: "Axial",
		Modality:          "CT",
		FilePath:          "a.dcm",
	}
}

func expectResolvedGraph(repo *repoMocks.MockCatalogRepository) {
	repo.On("FindOrCreatePatient", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Patient{ID: 1, PatientName: "Doe", CreatedDate: fixedNow}, nil).Once()
	repo.On("FindOrCreateStudy", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Study{ID: 2, PatientID: 1, StudyName: "Head CT", StudyDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), CreatedDate: fixedNow}, nil).Once()
	repo.On("FindOrCreateModality", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Modality{ID: 3, Name: "CT"}, nil).Once()
	repo.On("FindOrCreateSeries", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Series{ID: 4, PatientID: 1, StudyID: 2, ModalityID: 3, SeriesName: "Axial", CreatedDate: fixedNow}, nil).Once()
	repo.On("CreateFile", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.File{ID: 5, PatientID: 1, StudyID: 2, SeriesID: 4, FilePath: "a.dcm", CreatedDate: fixedNow}, nil).Once()
}

func TestProcessUpload_HappyPath(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc, dbMock, slept := newUploadService(t, repo)

	dbMock.ExpectBegin()
	expectResolvedGraph(repo)
	dbMock.ExpectCommit()

	res, err := svc.ProcessUpload(context.Background(), validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(5), res.FileID)
	assert.Equal(t, int64(1), res.PatientID)
	assert.Equal(t, int64(2), res.StudyID)
	assert.Equal(t, int64(4), res.SeriesID)
	assert.Equal(t, "a.dcm", res.FilePath)
	assert.Equal(t, "Doe", res.PatientName)
	assert.Equal(t, "2024-01-15", res.StudyDate)
	assert.Equal(t, "Head CT", res.StudyDescription)
	assert.Equal(t, "Axial", res.SeriesDescription)
	assert.Equal(t, "CT", res.Modality)
	assert.Equal(t, fixedNow.Format(time.RFC3339), res.CreatedDate)
	assert.Empty(t, *slept)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestProcessUpload_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadInput)
		field  string
	}{
		{"missing patient name", func(in *UploadInput) { in.PatientName = "" }, "patientName"},
		{"missing modality", func(in *UploadInput) { in.Modality = "" }, "modality"},
		{"missing file path", func(in *UploadInput) { in.FilePath = "" }, "filePath"},
		{"missing study date", func(in *UploadInput) { in.StudyDate = "" }, "studyDate"},
		{"short study date", func(in *UploadInput) { in.StudyDate = "2024011" }, "studyDate"},
		{"dashed study date", func(in *UploadInput) { in.StudyDate = "2024-01-15" }, "studyDate"},
		{"nonexistent day", func(in *UploadInput) { in.StudyDate = "20240230" }, "studyDate"},
		{"path escaping upload root", func(in *UploadInput) { in.FilePath = "../../etc/passwd" }, "filePath"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockCatalogRepository)
			svc, dbMock, _ := newUploadService(t, repo)

			in := validInput()
			tt.mutate(&in)

			res, err := svc.ProcessUpload(context.Background(), in)

			assert.Nil(t, res)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			// No transaction may be opened for malformed input.
			assert.NoError(t, dbMock.ExpectationsWereMet())
			repo.AssertExpectations(t)
		})
	}
}

func TestProcessUpload_DefaultsDescriptions(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc, dbMock, _ := newUploadService(t, repo)

	dbMock.ExpectBegin()
	repo.On("FindOrCreatePatient", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Patient{ID: 1, PatientName: "Doe", CreatedDate: fixedNow}, nil)
	repo.On("FindOrCreateStudy", mock.Anything, mock.Anything, mock.MatchedBy(func(s *model.Study) bool {
		return s.StudyName == defaultStudyName
	})).Return(&model.Study{ID: 2, PatientID: 1, StudyName: defaultStudyName, StudyDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}, nil)
	repo.On("FindOrCreateModality", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.Modality{ID: 3, Name: "CT"}, nil)
	repo.On("FindOrCreateSeries", mock.Anything, mock.Anything, mock.MatchedBy(func(s *model.Series) bool {
		return s.SeriesName == defaultSeriesName
	})).Return(&model.Series{ID: 4, PatientID: 1, StudyID: 2, ModalityID: 3, SeriesName: defaultSeriesName}, nil)
	repo.On("CreateFile", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.File{ID: 5, FilePath: "a.dcm", CreatedDate: fixedNow}, nil)
	dbMock.ExpectCommit()

	in := validInput()
	in.StudyDescription = ""
	in.SeriesDescription = ""

	res, err := svc.ProcessUpload(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, defaultStudyName, res.StudyDescription)
	assert.Equal(t, defaultSeriesName, res.SeriesDescription)
	repo.AssertExpectations(t)
}

func TestProcessUpload_RetriesOnLockConflict(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc, dbMock, slept := newUploadService(t, repo)

	lockErr := &repository.StoreError{
		Op:   "find patient",
		Kind: repository.KindRetriableLock,
		Err:  &pgconn.PgError{Code: "40P01"},
	}

	// First attempt deadlocks and rolls back; second succeeds.
	dbMock.ExpectBegin()
	repo.On("FindOrCreatePatient", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, lockErr).Once()
	dbMock.ExpectRollback()
	dbMock.ExpectBegin()
	expectResolvedGraph(repo)
	dbMock.ExpectCommit()

	res, err := svc.ProcessUpload(context.Background(), validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(5), res.FileID)
	assert.Equal(t, []time.Duration{1 * time.Second}, *slept)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestProcessUpload_RetryBudgetExhausted(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc, dbMock, slept := newUploadService(t, repo)

	lockErr := &repository.StoreError{
		Op:   "find patient",
		Kind: repository.KindRetriableLock,
		Err:  &pgconn.PgError{Code: "40001"},
	}

	for i := 0; i < maxUploadAttempts; i++ {
		dbMock.ExpectBegin()
		dbMock.ExpectRollback()
	}
	repo.On("FindOrCreatePatient", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, lockErr).Times(maxUploadAttempts)

	res, err := svc.ProcessUpload(context.Background(), validInput())

	assert.Nil(t, res)
	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.True(t, repository.IsRetriableLock(uerr.Err))
	// Backoff grows strictly: attempt number times the unit.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestProcessUpload_NonRetriableFailsImmediately(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc, dbMock, slept := newUploadService(t, repo)

	storeErr := &repository.StoreError{
		Op:   "create file",
		Kind: repository.KindUniqueViolation,
		Err:  &pgconn.PgError{Code: "23505"},
	}

	dbMock.ExpectBegin()
	repo.On("FindOrCreatePatient", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, storeErr).Once()
	dbMock.ExpectRollback()

	res, err := svc.ProcessUpload(context.Background(), validInput())

	assert.Nil(t, res)
	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.True(t, repository.IsUniqueViolation(uerr.Err))
	assert.Empty(t, *slept)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestProcessUpload_CommitConflictIsRetried(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc, dbMock, slept := newUploadService(t, repo)

	// Under serializable isolation the conflict can surface at COMMIT.
	dbMock.ExpectBegin()
	expectResolvedGraph(repo)
	dbMock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})
	dbMock.ExpectBegin()
	expectResolvedGraph(repo)
	dbMock.ExpectCommit()

	res, err := svc.ProcessUpload(context.Background(), validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(5), res.FileID)
	assert.Equal(t, []time.Duration{1 * time.Second}, *slept)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	repo.AssertExpectations(t)
}

func TestProcessUpload_PathRelativization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare filename", "a.dcm", "a.dcm"},
		{"nested path", "sub/a.dcm", "sub/a.dcm"},
		{"absolute path is stripped to the root", "/abs/a.dcm", "abs/a.dcm"},
		{"dot segments collapse", "./sub/../a.dcm", "a.dcm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &uploadService{uploadRoot: "/srv/dicom"}
			got, err := svc.relativizePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("escape is rejected", func(t *testing.T) {
		svc := &uploadService{uploadRoot: "/srv/dicom"}
		_, err := svc.relativizePath("../outside.dcm")
		assert.Error(t, err)
	})
}

func TestSafeRollback_FinishedTransaction(t *testing.T) {
	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dbMock.ExpectBegin()
	dbMock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	// Must not panic or block on an already-finished transaction.
	safeRollback(tx)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestUploadError_PreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := &UploadError{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to process DICOM upload")
}
