package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dicomcat/internal/model"
	"dicomcat/internal/service"
)

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) ProcessUpload(ctx context.Context, in service.UploadInput) (*model.UploadResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UploadResult), args.Error(1)
}
