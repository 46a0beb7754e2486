package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dicomcat/internal/model"
	"dicomcat/internal/repository"
)

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindOrCreatePatient(ctx context.Context, q repository.DBTX, p *model.Patient) (*model.Patient, error) {
	args := m.Called(ctx, q, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *MockCatalogRepository) FindOrCreateStudy(ctx context.Context, q repository.DBTX, s *model.Study) (*model.Study, error) {
	args := m.Called(ctx, q, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Study), args.Error(1)
}

func (m *MockCatalogRepository) FindOrCreateModality(ctx context.Context, q repository.DBTX, mo *model.Modality) (*model.Modality, error) {
	args := m.Called(ctx, q, mo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Modality), args.Error(1)
}

func (m *MockCatalogRepository) FindOrCreateSeries(ctx context.Context, q repository.DBTX, s *model.Series) (*model.Series, error) {
	args := m.Called(ctx, q, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Series), args.Error(1)
}

func (m *MockCatalogRepository) CreateFile(ctx context.Context, q repository.DBTX, f *model.File) (*model.File, error) {
	args := m.Called(ctx, q, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockCatalogRepository) ListFileRecords(ctx context.Context, q repository.DBTX) ([]model.FileRecord, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockCatalogRepository) FilePathExists(ctx context.Context, q repository.DBTX, filePath string) (bool, error) {
	args := m.Called(ctx, q, filePath)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) ListPatients(ctx context.Context, q repository.DBTX) ([]model.Patient, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Patient), args.Error(1)
}

func (m *MockCatalogRepository) GetPatient(ctx context.Context, q repository.DBTX, id int64) (*model.Patient, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *MockCatalogRepository) ListStudies(ctx context.Context, q repository.DBTX) ([]model.Study, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Study), args.Error(1)
}

func (m *MockCatalogRepository) GetStudy(ctx context.Context, q repository.DBTX, id int64) (*model.Study, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Study), args.Error(1)
}

func (m *MockCatalogRepository) ListStudiesByPatient(ctx context.Context, q repository.DBTX, patientID int64) ([]model.Study, error) {
	args := m.Called(ctx, q, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Study), args.Error(1)
}

func (m *MockCatalogRepository) ListSeries(ctx context.Context, q repository.DBTX) ([]model.Series, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Series), args.Error(1)
}

func (m *MockCatalogRepository) GetSeries(ctx context.Context, q repository.DBTX, id int64) (*model.Series, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Series), args.Error(1)
}

func (m *MockCatalogRepository) ListSeriesByStudy(ctx context.Context, q repository.DBTX, studyID int64) ([]model.Series, error) {
	args := m.Called(ctx, q, studyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Series), args.Error(1)
}

func (m *MockCatalogRepository) GetModality(ctx context.Context, q repository.DBTX, id int64) (*model.Modality, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Modality), args.Error(1)
}

func (m *MockCatalogRepository) ListFiles(ctx context.Context, q repository.DBTX) ([]model.File, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}

func (m *MockCatalogRepository) GetFile(ctx context.Context, q repository.DBTX, id int64) (*model.File, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockCatalogRepository) ListFilesBySeries(ctx context.Context, q repository.DBTX, seriesID int64) ([]model.File, error) {
	args := m.Called(ctx, q, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}
