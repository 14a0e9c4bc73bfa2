package shop

import (
	"context"

	"storefront/internal/apiclient"

	"github.com/stretchr/testify/mock"
)

// MockRequester is a mock implementation of Requester.
type MockRequester struct {
	mock.Mock
}

func (m *MockRequester) Get(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path, out)
	return args.Error(0)
}

func (m *MockRequester) Post(ctx context.Context, path string, body, out any) error {
	args := m.Called(ctx, path, body, out)
	return args.Error(0)
}

func (m *MockRequester) Put(ctx context.Context, path string, body, out any) error {
	args := m.Called(ctx, path, body, out)
	return args.Error(0)
}

func (m *MockRequester) Delete(ctx context.Context, path string, out any) error {
	args := m.Called(ctx, path, out)
	return args.Error(0)
}

func (m *MockRequester) SendMultipart(ctx context.Context, method, path string, form *apiclient.Multipart, out any) error {
	args := m.Called(ctx, method, path, form, out)
	return args.Error(0)
}
