// Package mockstorage provides a testify-based mock of the storage
// interfaces consumed by the service and auth packages.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/user"
)

// StorageMock is a testify mock that implements all storage methods.
type StorageMock struct {
	mock.Mock

	// OnCountUsers, when set, answers CountUsers without going through testify.
	OnCountUsers func(ctx context.Context) (int64, error)

	// OnCountURLs, when set, answers CountURLs without going through testify.
	OnCountURLs func(ctx context.Context) (int64, error)
}

// Ping mocks the pinger interface to simulate a health check.
func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks closing the storage and releasing resources.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// CreateUser mocks user creation and returns the configured ID.
func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User) (string, error) {
	args := m.Called(ctx, usr)
	return args.String(0), args.Error(1)
}

// GetUserByID mocks fetching a user by their ID.
func (m *StorageMock) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	args := m.Called(ctx, userID)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// FindUserByEmail mocks the email lookup.
func (m *StorageMock) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

// InsertURL mocks storing a new record.
func (m *StorageMock) InsertURL(ctx context.Context, record models.URLRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// GetURL mocks fetching a record by short id.
func (m *StorageMock) GetURL(ctx context.Context, shortID string) (*models.URLRecord, error) {
	args := m.Called(ctx, shortID)
	record, _ := args.Get(0).(*models.URLRecord)
	return record, args.Error(1)
}

// UpdateURL mocks changing the long URL of a record.
func (m *StorageMock) UpdateURL(ctx context.Context, shortID, longURL string) error {
	args := m.Called(ctx, shortID, longURL)
	return args.Error(0)
}

// DeleteURL mocks removing a record.
func (m *StorageMock) DeleteURL(ctx context.Context, shortID string) error {
	args := m.Called(ctx, shortID)
	return args.Error(0)
}

// ListURLsByOwner mocks the owner-scoped listing.
func (m *StorageMock) ListURLsByOwner(ctx context.Context, ownerID string) ([]models.URLRecord, error) {
	args := m.Called(ctx, ownerID)
	records, _ := args.Get(0).([]models.URLRecord)
	return records, args.Error(1)
}

// ScanURLs mocks the full listing.
func (m *StorageMock) ScanURLs(ctx context.Context) ([]models.URLRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]models.URLRecord)
	return records, args.Error(1)
}

// CountUsers returns the number of users as defined by the mock.
//
// If OnCountUsers is non-nil, it will be called to produce the result.
// Otherwise, the method returns 0 and no error by default.
func (m *StorageMock) CountUsers(ctx context.Context) (int64, error) {
	if m.OnCountUsers != nil {
		return m.OnCountUsers(ctx)
	}
	return 0, nil
}

// CountURLs returns the number of stored records.
//
// If OnCountURLs is defined, the method will call it and return
// its result. Otherwise, it defaults to returning 0 and no error.
func (m *StorageMock) CountURLs(ctx context.Context) (int64, error) {
	if m.OnCountURLs != nil {
		return m.OnCountURLs(ctx)
	}
	return 0, nil
}
