package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

var testStore = StoreSpec{Table: "be_users", EnabledClause: "disabled = false"}

type staticMemberships struct {
	memberships *Memberships
	err         error
	calls       int
}

func (s *staticMemberships) Memberships(ctx context.Context) (*Memberships, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.memberships, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolve_CreatesNewRecord(t *testing.T) {
	repo := NewInMemoryUserRepository()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := New(repo, WithClock(fixedClock(created)))

	rec, err := svc.Resolve(context.Background(), ResolveRequest{
		Store:       testStore,
		Identifier:  "jane.doe@example.com",
		DisplayName: "Jane Doe",
		Claims:      map[string]interface{}{"preferred_username": "Jane.Doe@Example.COM"},
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "jane.doe@example.com", rec.Username)
	assert.Equal(t, "jane.doe@example.com", rec.Email)
	assert.Equal(t, "Jane Doe", rec.RealName)
	assert.False(t, rec.Admin)
	assert.NotEqual(t, uuid0, rec.ID.String())
	assert.Equal(t, created, rec.CreatedAt)
	assert.Equal(t, created, rec.UpdatedAt)
	assert.Contains(t, string(rec.RawClaims), "preferred_username")

	// The generated credential is a real bcrypt hash that nothing can guess.
	require.NotEmpty(t, rec.Password)
	err = bcrypt.CompareHashAndPassword([]byte(rec.Password), []byte("jane.doe@example.com"))
	assert.Error(t, err)
}

const uuid0 = "00000000-0000-0000-0000-000000000000"

func TestResolve_UpdatesExistingRecord(t *testing.T) {
	repo := NewInMemoryUserRepository()
	first := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	svc := New(repo, WithClock(fixedClock(first)))
	created, err := svc.Resolve(context.Background(), ResolveRequest{
		Store:       testStore,
		Identifier:  "jane.doe@example.com",
		DisplayName: "Jane Doe",
	})
	require.NoError(t, err)

	svc = New(repo, WithClock(fixedClock(second)))
	updated, err := svc.Resolve(context.Background(), ResolveRequest{
		Store:       testStore,
		Identifier:  "jane.doe@example.com",
		DisplayName: "Jane D. Doe",
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Password, updated.Password, "credential is only assigned on creation")
	assert.Equal(t, "Jane D. Doe", updated.RealName)
	assert.Equal(t, first, updated.CreatedAt)
	assert.Equal(t, second, updated.UpdatedAt)
}

func TestResolve_GroupRulesUnionRoles(t *testing.T) {
	repo := NewInMemoryUserRepository()
	svc := New(repo, WithGroupRules("id", map[string]FieldRules{
		"g1": {Append: map[string]string{FieldUserGroups: "editor"}},
		"g2": {Append: map[string]string{FieldUserGroups: "editor,viewer"}},
	}))

	source := &staticMemberships{memberships: &Memberships{
		Raw: []byte(`{"value":[{"id":"g1"},{"id":"g2"},{"id":"unmapped"}]}`),
		Groups: []map[string]interface{}{
			{"id": "g1"}, {"id": "g2"}, {"id": "unmapped"},
		},
	}}

	rec, err := svc.Resolve(context.Background(), ResolveRequest{
		Store:       testStore,
		Identifier:  "jane.doe@example.com",
		DisplayName: "Jane Doe",
		Groups:      source,
	})
	require.NoError(t, err)

	assert.Equal(t, "editor,viewer", rec.UserGroups)
	assert.Equal(t, 1, source.calls)
	assert.Contains(t, string(rec.RawGroups), "unmapped")
}

func TestResolve_GroupRulesRecomputedEachLogin(t *testing.T) {
	repo := NewInMemoryUserRepository()
	svc := New(repo, WithGroupRules("id", map[string]FieldRules{
		"g1": {Append: map[string]string{FieldUserGroups: "editor"}},
		"g2": {Append: map[string]string{FieldUserGroups: "viewer"}},
	}))

	both := &staticMemberships{memberships: &Memberships{
		Groups: []map[string]interface{}{{"id": "g1"}, {"id": "g2"}},
	}}
	_, err := svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com", Groups: both,
	})
	require.NoError(t, err)

	// Membership in g2 revoked: the computed list shrinks accordingly.
	onlyFirst := &staticMemberships{memberships: &Memberships{
		Groups: []map[string]interface{}{{"id": "g1"}},
	}}
	rec, err := svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com", Groups: onlyFirst,
	})
	require.NoError(t, err)
	assert.Equal(t, "editor", rec.UserGroups)
}

func TestResolve_DefaultsAppliedBeforeGroups(t *testing.T) {
	repo := NewInMemoryUserRepository()
	svc := New(repo,
		WithDefaults(FieldRules{Append: map[string]string{FieldUserGroups: "everyone"}}),
		WithGroupRules("id", map[string]FieldRules{
			"g1": {Append: map[string]string{FieldUserGroups: "editor"}},
		}),
	)

	source := &staticMemberships{memberships: &Memberships{
		Groups: []map[string]interface{}{{"id": "g1"}},
	}}
	rec, err := svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com", Groups: source,
	})
	require.NoError(t, err)
	assert.Equal(t, "everyone,editor", rec.UserGroups)
}

func TestResolve_MembershipFetchSkippedWithoutRules(t *testing.T) {
	repo := NewInMemoryUserRepository()
	svc := New(repo)

	source := &staticMemberships{err: errors.New(errors.ErrCodeProviderRejected, "should not be called")}
	_, err := svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com", Groups: source,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, source.calls)
}

func TestResolve_MembershipErrorPropagates(t *testing.T) {
	repo := NewInMemoryUserRepository()
	svc := New(repo, WithGroupRules("id", map[string]FieldRules{
		"g1": {Append: map[string]string{FieldUserGroups: "editor"}},
	}))

	source := &staticMemberships{err: errors.New(errors.ErrCodeProviderRejected, "graph denied")}
	_, err := svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com", Groups: source,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProviderRejected))
}

func TestResolve_MissingIdentifier(t *testing.T) {
	svc := New(NewInMemoryUserRepository())
	_, err := svc.Resolve(context.Background(), ResolveRequest{Store: testStore})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidInput))
}

func TestResolve_DisabledUserInvisible(t *testing.T) {
	repo := NewInMemoryUserRepository()
	svc := New(repo)

	_, err := svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com",
	})
	require.NoError(t, err)

	repo.SetDisabled(testStore.Table, "jane.doe@example.com", true)

	// The existing row is filtered out, so the resolver tries a fresh insert
	// which collides with the stored row.
	_, err = svc.Resolve(context.Background(), ResolveRequest{
		Store: testStore, Identifier: "jane.doe@example.com",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStorageFailure))
}
