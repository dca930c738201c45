package mocks

import (
	"github.com/brettbedarf/treefs/persist"
	"github.com/stretchr/testify/mock"
)

// MockStore implements persist.Store for testing across packages
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Read(path string) ([]byte, error) {
	args := m.Called(path)

	// Handle function return types (for tests that need the path)
	if fn, ok := args.Get(0).(func(string) []byte); ok {
		return fn(path), args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStore) Write(path string, data []byte) error {
	args := m.Called(path, data)
	return args.Error(0)
}

var _ persist.Store = (*MockStore)(nil)

// NewMockStore returns a MockStore whose expectations are asserted when t finishes
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
