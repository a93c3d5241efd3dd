// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"vidset/internal/analysis"
	"vidset/internal/appcore"
	"vidset/internal/dataset"
	"vidset/internal/media"
	"vidset/internal/types"
)

// MockBackend is a mock implementation of handler.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Job), args.Error(1)
}

func (m *MockBackend) ListJobs(ctx context.Context, limit int) ([]types.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Job), args.Error(1)
}

func (m *MockBackend) Stats(root string) (dataset.Statistics, error) {
	args := m.Called(root)
	return args.Get(0).(dataset.Statistics), args.Error(1)
}

func (m *MockBackend) Balance(root string) (analysis.BalanceReport, error) {
	args := m.Called(root)
	return args.Get(0).(analysis.BalanceReport), args.Error(1)
}

func (m *MockBackend) VideoInfo(ctx context.Context, path string) (media.VideoInfo, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.VideoInfo), args.Error(1)
}

// MockJobQueue is a mock implementation of handler.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) Submit(ctx context.Context, req appcore.JobRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockJobQueue) Cancel(jobID string) error {
	args := m.Called(jobID)
	return args.Error(0)
}
