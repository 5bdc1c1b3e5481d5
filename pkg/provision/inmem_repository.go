package provision

import (
	"context"
	"sync"
	"time"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

// InMemoryUserRepository implements UserRepository using in-memory storage.
// It is used by tests and the demo host.
type InMemoryUserRepository struct {
	tables map[string]map[string]*UserRecord
	mutex  sync.RWMutex
}

// NewInMemoryUserRepository creates a new empty in-memory repository.
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		tables: make(map[string]map[string]*UserRecord),
	}
}

// GetUser looks up a record by username, honoring the enabled filter.
func (r *InMemoryUserRepository) GetUser(ctx context.Context, store StoreSpec, username string) (*UserRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rec, ok := r.tables[store.Table][username]
	if !ok {
		return nil, errors.NotFoundUser(username)
	}
	if store.EnabledClause != "" && rec.Disabled {
		return nil, errors.NotFoundUser(username)
	}

	// Return a copy to prevent external modifications
	return rec.Clone(), nil
}

// InsertUser creates a new record.
func (r *InMemoryUserRepository) InsertUser(ctx context.Context, store StoreSpec, rec *UserRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	table, ok := r.tables[store.Table]
	if !ok {
		table = make(map[string]*UserRecord)
		r.tables[store.Table] = table
	}
	if _, exists := table[rec.Username]; exists {
		return errors.Newf(errors.ErrCodeStorageFailure, "user already exists: %s", rec.Username)
	}

	table[rec.Username] = rec.Clone()
	return nil
}

// UpdateUser applies the computed fields to an existing record.
func (r *InMemoryUserRepository) UpdateUser(ctx context.Context, store StoreSpec, username string, fields FieldMap, rawClaims, rawGroups []byte, updatedAt time.Time) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	rec, ok := r.tables[store.Table][username]
	if !ok {
		return errors.NotFoundUser(username)
	}

	applyFieldMap(rec, fields)
	if rawClaims != nil {
		rec.RawClaims = append([]byte(nil), rawClaims...)
	}
	if rawGroups != nil {
		rec.RawGroups = append([]byte(nil), rawGroups...)
	}
	rec.UpdatedAt = updatedAt
	return nil
}

// SetDisabled toggles the disabled flag of a stored record, for tests.
func (r *InMemoryUserRepository) SetDisabled(table, username string, disabled bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if rec, ok := r.tables[table][username]; ok {
		rec.Disabled = disabled
	}
}
