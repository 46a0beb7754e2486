package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"dicomcat/internal/extractor"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, filePath string) (*extractor.Metadata, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extractor.Metadata), args.Error(1)
}
