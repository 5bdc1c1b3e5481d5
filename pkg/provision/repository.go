package provision

import (
	"context"
	"time"
)

// UserRepository defines the interface for the user store.
//
// GetUser returns an error with code ErrCodeUserNotFound when no enabled
// record matches; every other failure is a storage failure and propagates
// unchanged to callers.
type UserRepository interface {
	// GetUser looks up a record by exact, case-normalized username, subject
	// to the store's enabled filter.
	GetUser(ctx context.Context, store StoreSpec, username string) (*UserRecord, error)

	// InsertUser creates a new record.
	InsertUser(ctx context.Context, store StoreSpec, rec *UserRecord) error

	// UpdateUser updates only the computed fields of an existing record:
	// the assignments in fields, the raw payload blobs (skipped when nil)
	// and the freshness timestamp. Identifier and credential are never
	// touched.
	UpdateUser(ctx context.Context, store StoreSpec, username string, fields FieldMap, rawClaims, rawGroups []byte, updatedAt time.Time) error
}
