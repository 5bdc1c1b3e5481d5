package provision

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

// Service reconciles a resolved identity against the local user store:
// create on first login, update on every subsequent one, with declarative
// field-merge rules deriving role and profile assignments from provider
// group memberships.
type Service struct {
	repo      UserRepository
	defaults  FieldRules
	groups    map[string]FieldRules
	groupsKey string
	now       func() time.Time
}

// Option is a function that configures a Service
type Option func(*Service)

// WithDefaults sets the baseline field-merge rules applied to every login.
func WithDefaults(rules FieldRules) Option {
	return func(s *Service) {
		s.defaults = rules
	}
}

// WithGroupRules enables group mapping: key names the claim identifying a
// group in the provider's membership response, rules maps that identifier to
// the field assignments for members of the group.
func WithGroupRules(key string, rules map[string]FieldRules) Option {
	return func(s *Service) {
		s.groupsKey = key
		s.groups = rules
	}
}

// WithClock sets the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a provisioning service on top of the given user repository.
func New(repo UserRepository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		groupsKey: "id",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GroupMappingEnabled reports whether a per-group rule table is configured.
func (s *Service) GroupMappingEnabled() bool {
	return len(s.groups) > 0
}

// ResolveRequest carries one resolved identity into the user store.
type ResolveRequest struct {
	// Store names the user table and enabled filter supplied by the host.
	Store StoreSpec

	// Identifier is the lower-cased email-style login identifier.
	Identifier string

	// DisplayName is the subject's display name from the claims.
	DisplayName string

	// Claims is the full decoded claims document, persisted verbatim.
	Claims map[string]interface{}

	// Groups fetches memberships from the provider. It is only consulted
	// when group mapping is configured; nil disables the fetch.
	Groups MembershipSource
}

// Resolve looks up the record for the identifier, creating it if absent and
// updating its computed fields if present, and returns the up-to-date record.
//
// Field assignments are computed the same way on both paths: display name,
// freshness timestamp and raw-claims blob, then the default merge rules, then
// one rule set per provider group in response order, so the last group wins
// scalar overrides. The insert path additionally assigns the identifier, a
// generated opaque credential, a non-privileged default and the creation
// timestamp.
func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*UserRecord, error) {
	if req.Identifier == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "login identifier is required")
	}

	existing, err := s.repo.GetUser(ctx, req.Store, req.Identifier)
	if err != nil && !errors.IsCode(err, errors.ErrCodeUserNotFound) {
		return nil, err
	}

	rawClaims, err := json.Marshal(req.Claims)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to encode claims")
	}

	fields := FieldMap{FieldRealName: req.DisplayName}
	MergeFields(fields, s.defaults)

	var rawGroups []byte
	if s.GroupMappingEnabled() && req.Groups != nil {
		memberships, err := req.Groups.Memberships(ctx)
		if err != nil {
			return nil, err
		}
		rawGroups = memberships.Raw

		for _, group := range memberships.Groups {
			identifier, _ := group[s.groupsKey].(string)
			if rules, ok := s.groups[identifier]; ok {
				MergeFields(fields, rules)
			}
		}
	}

	now := s.now()
	if existing == nil {
		credential, err := s.generateCredential()
		if err != nil {
			return nil, err
		}

		rec := &UserRecord{
			ID:        uuid.New(),
			Username:  req.Identifier,
			Email:     req.Identifier,
			Password:  credential,
			Admin:     false,
			RawClaims: rawClaims,
			RawGroups: rawGroups,
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyFieldMap(rec, fields)

		if err := s.repo.InsertUser(ctx, req.Store, rec); err != nil {
			return nil, err
		}
		slog.Info("Created user record", "username", req.Identifier, "table", req.Store.Table)
	} else {
		if err := s.repo.UpdateUser(ctx, req.Store, req.Identifier, fields, rawClaims, rawGroups, now); err != nil {
			return nil, err
		}
		slog.Info("Updated user record", "username", req.Identifier, "table", req.Store.Table)
	}

	return s.repo.GetUser(ctx, req.Store, req.Identifier)
}

// generateCredential returns a bcrypt hash of fresh random bytes. The
// credential exists only to satisfy the user table's schema; nothing ever
// authenticates with it.
func (s *Service) generateCredential() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", errors.InternalWrap(err, "failed to generate credential")
	}
	hashed, err := bcrypt.GenerateFromPassword(raw, bcrypt.DefaultCost)
	if err != nil {
		return "", errors.InternalWrap(err, "failed to hash credential")
	}
	return string(hashed), nil
}
