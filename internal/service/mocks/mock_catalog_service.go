package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dicomcat/internal/model"
	"dicomcat/internal/service"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetAllDicomFiles(ctx context.Context) ([]service.DicomFileData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.DicomFileData), args.Error(1)
}

func (m *MockCatalogService) CheckFilePathExists(ctx context.Context, filePath string) (bool, error) {
	args := m.Called(ctx, filePath)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogService) Patients(ctx context.Context) ([]model.Patient, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Patient), args.Error(1)
}

func (m *MockCatalogService) Patient(ctx context.Context, id int64) (*model.Patient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *MockCatalogService) Studies(ctx context.Context) ([]model.Study, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Study), args.Error(1)
}

func (m *MockCatalogService) Study(ctx context.Context, id int64) (*model.Study, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Study), args.Error(1)
}

func (m *MockCatalogService) StudiesByPatient(ctx context.Context, patientID int64) ([]model.Study, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Study), args.Error(1)
}

func (m *MockCatalogService) AllSeries(ctx context.Context) ([]model.Series, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Series), args.Error(1)
}

func (m *MockCatalogService) Series(ctx context.Context, id int64) (*model.Series, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Series), args.Error(1)
}

func (m *MockCatalogService) SeriesByStudy(ctx context.Context, studyID int64) ([]model.Series, error) {
	args := m.Called(ctx, studyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Series), args.Error(1)
}

func (m *MockCatalogService) Modality(ctx context.Context, id int64) (*model.Modality, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Modality), args.Error(1)
}

func (m *MockCatalogService) Files(ctx context.Context) ([]model.File, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}

func (m *MockCatalogService) File(ctx context.Context, id int64) (*model.File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.File), args.Error(1)
}

func (m *MockCatalogService) FilesBySeries(ctx context.Context, seriesID int64) ([]model.File, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.File), args.Error(1)
}
