package mocks

import (
	"context"

	"docarchive/internal/model"
	"docarchive/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, meta model.Metadata, files []service.FileUpload, ownerID int64) (int64, error) {
	args := m.Called(ctx, meta, files, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, f model.ListFilter) ([]model.DocumentSummary, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentSummary), args.Error(1)
}

func (m *MockDocumentService) Update(ctx context.Context, id int64, meta model.Metadata) error {
	args := m.Called(ctx, id, meta)
	return args.Error(0)
}

func (m *MockDocumentService) Delete(ctx context.Context, id int64) (*service.DeleteResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteResult), args.Error(1)
}
