package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dicomcat/internal/model"
	repoMocks "dicomcat/internal/repository/mocks"
)

func newCatalogService(t *testing.T, repo *repoMocks.MockCatalogRepository) CatalogService {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCatalogService(db, repo)
}

func TestGetAllDicomFiles(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	repo.On("ListFileRecords", mock.Anything, mock.Anything).Return([]model.FileRecord{
		{
			FileID:            5,
			PatientID:         1,
			StudyID:           2,
			SeriesID:          4,
			FilePath:          "a.dcm",
			PatientName:       "Doe",
			StudyDate:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			StudyDescription:  "Head CT",
			SeriesDescription: "Axial",
			Modality:          "CT",
			CreatedDate:       created,
		},
	}, nil)

	got, err := svc.GetAllDicomFiles(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].FileID)
	assert.Equal(t, "20240115", got[0].StudyDate)
	assert.Equal(t, "2024-03-01T10:30:00Z", got[0].CreatedDate)
	assert.Equal(t, "Doe", got[0].PatientName)
	repo.AssertExpectations(t)
}

func TestGetAllDicomFiles_Empty(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	repo.On("ListFileRecords", mock.Anything, mock.Anything).Return([]model.FileRecord{}, nil)

	got, err := svc.GetAllDicomFiles(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCheckFilePathExists(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	repo.On("FilePathExists", mock.Anything, mock.Anything, "a.dcm").Return(true, nil)

	ok, err := svc.CheckFilePathExists(context.Background(), "a.dcm")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckFilePathExists_EmptyPath(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	_, err := svc.CheckFilePathExists(context.Background(), "")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "filePath", verr.Field)
	repo.AssertNotCalled(t, "FilePathExists")
}

func TestPatient_NotFound(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	repo.On("GetPatient", mock.Anything, mock.Anything, int64(42)).Return(nil, sql.ErrNoRows)

	_, err := svc.Patient(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatient_IDRequired(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	_, err := svc.Patient(context.Background(), 0)
	assert.ErrorIs(t, err, ErrIDRequired)
	repo.AssertNotCalled(t, "GetPatient")
}

func TestStudy_Found(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	want := &model.Study{ID: 2, PatientID: 1, StudyName: "Head CT"}
	repo.On("GetStudy", mock.Anything, mock.Anything, int64(2)).Return(want, nil)

	got, err := svc.Study(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSeriesByStudy(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	want := []model.Series{{ID: 4, StudyID: 2, SeriesName: "Axial"}}
	repo.On("ListSeriesByStudy", mock.Anything, mock.Anything, int64(2)).Return(want, nil)

	got, err := svc.SeriesByStudy(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFilesBySeries(t *testing.T) {
	repo := new(repoMocks.MockCatalogRepository)
	svc := newCatalogService(t, repo)

	want := []model.File{{ID: 5, SeriesID: 4, FilePath: "a.dcm"}}
	repo.On("ListFilesBySeries", mock.Anything, mock.Anything, int64(4)).Return(want, nil)

	got, err := svc.FilesBySeries(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
