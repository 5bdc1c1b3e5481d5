package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

// PostgresUserRepository implements UserRepository against a Postgres user
// table. The table name comes from the host's AuthInfo per request, so all
// statements are built with a sanitized identifier rather than prepared
// against a fixed table.
//
// Expected columns: id uuid, username text, email text, real_name text,
// password text, admin bool, disabled bool, usergroup text, raw_claims jsonb,
// raw_groups jsonb, extra jsonb, crdate timestamptz, tstamp timestamptz.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a repository backed by the given pool.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = "id, username, email, real_name, password, admin, disabled, usergroup, raw_claims, raw_groups, extra, crdate, tstamp"

// GetUser looks up a record by username, honoring the store's enabled clause.
func (r *PostgresUserRepository) GetUser(ctx context.Context, store StoreSpec, username string) (*UserRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE username = $1", userColumns, pgx.Identifier{store.Table}.Sanitize())
	if store.EnabledClause != "" {
		query += " AND " + store.EnabledClause
	}

	row := r.pool.QueryRow(ctx, query, username)

	var rec UserRecord
	var extra []byte
	err := row.Scan(
		&rec.ID, &rec.Username, &rec.Email, &rec.RealName, &rec.Password,
		&rec.Admin, &rec.Disabled, &rec.UserGroups,
		&rec.RawClaims, &rec.RawGroups, &extra,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFoundUser(username)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeStorageFailure, "failed to query user %s", username)
	}

	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &rec.Extra); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeStorageFailure, "failed to decode extra fields for user %s", username)
		}
	}
	return &rec, nil
}

// InsertUser creates a new record.
func (r *PostgresUserRepository) InsertUser(ctx context.Context, store StoreSpec, rec *UserRecord) error {
	extra, err := json.Marshal(rec.Extra)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to encode extra fields")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		pgx.Identifier{store.Table}.Sanitize(), userColumns,
	)
	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.Username, rec.Email, rec.RealName, rec.Password,
		rec.Admin, rec.Disabled, rec.UserGroups,
		rec.RawClaims, rec.RawGroups, extra,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageFailure, "failed to insert user %s", rec.Username)
	}
	return nil
}

// UpdateUser updates only the computed fields of an existing record.
func (r *PostgresUserRepository) UpdateUser(ctx context.Context, store StoreSpec, username string, fields FieldMap, rawClaims, rawGroups []byte, updatedAt time.Time) error {
	set := []string{"tstamp = $1"}
	args := []interface{}{updatedAt}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if rawClaims != nil {
		appendSet("raw_claims", rawClaims)
	}
	if rawGroups != nil {
		appendSet("raw_groups", rawGroups)
	}

	extra := make(map[string]string)
	for field, value := range fields {
		switch field {
		case FieldRealName:
			appendSet("real_name", value)
		case FieldEmail:
			appendSet("email", strings.ToLower(value))
		case FieldAdmin:
			appendSet("admin", parseBoolField(value))
		case FieldUserGroups:
			appendSet("usergroup", value)
		default:
			extra[field] = value
		}
	}
	if len(extra) > 0 {
		encoded, err := json.Marshal(extra)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to encode extra fields")
		}
		// Merge into the existing blob so unrelated deployment fields survive.
		args = append(args, encoded)
		set = append(set, fmt.Sprintf("extra = COALESCE(extra, '{}'::jsonb) || $%d", len(args)))
	}

	args = append(args, username)
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE username = $%d",
		pgx.Identifier{store.Table}.Sanitize(), strings.Join(set, ", "), len(args),
	)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageFailure, "failed to update user %s", username)
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFoundUser(username)
	}
	return nil
}
