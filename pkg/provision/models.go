package provision

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known field names shared between merge rules and the user store.
// Anything else assigned by a rule lands in the record's Extra map, covering
// deployment-defined columns.
const (
	FieldRealName   = "real_name"
	FieldEmail      = "email"
	FieldAdmin      = "admin"
	FieldUserGroups = "usergroup"
)

// UserRecord is a persistent backend user keyed by its lower-cased
// email-style identifier. Records are created on first successful login and
// updated, never deleted, on every subsequent one.
type UserRecord struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	RealName string    `json:"real_name"`

	// Password holds a hash of random bytes generated on insert. It only
	// satisfies the local schema constraint; provider logins never use it.
	Password string `json:"-"`

	Admin    bool `json:"admin"`
	Disabled bool `json:"disabled"`

	// UserGroups is the comma-separated list-valued role/group field.
	UserGroups string `json:"usergroup"`

	// RawClaims and RawGroups are the last-seen provider payloads, stored
	// verbatim as JSON blobs.
	RawClaims json.RawMessage `json:"raw_claims,omitempty"`
	RawGroups json.RawMessage `json:"raw_groups,omitempty"`

	// Extra holds deployment-defined fields assigned by merge rules.
	Extra map[string]string `json:"extra,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *UserRecord) Clone() *UserRecord {
	cp := *r
	if r.RawClaims != nil {
		cp.RawClaims = append(json.RawMessage(nil), r.RawClaims...)
	}
	if r.RawGroups != nil {
		cp.RawGroups = append(json.RawMessage(nil), r.RawGroups...)
	}
	if r.Extra != nil {
		cp.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// FieldMap is the computed field-assignment map the merge algorithm operates
// on. Keys are field names, values their rendered string form.
type FieldMap map[string]string

// Clone returns a copy of the field map.
func (f FieldMap) Clone() FieldMap {
	cp := make(FieldMap, len(f))
	for k, v := range f {
		cp[k] = v
	}
	return cp
}

// applyFieldMap writes the computed assignments into the record. Unknown
// field names go to Extra.
func applyFieldMap(rec *UserRecord, fields FieldMap) {
	for k, v := range fields {
		switch k {
		case FieldRealName:
			rec.RealName = v
		case FieldEmail:
			rec.Email = strings.ToLower(v)
		case FieldAdmin:
			rec.Admin = parseBoolField(v)
		case FieldUserGroups:
			rec.UserGroups = v
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[k] = v
		}
	}
}

func parseBoolField(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// StoreSpec names the user store a lookup runs against: the table holding
// user records and the host's enabled filter.
type StoreSpec struct {
	// Table is the user-record table.
	Table string

	// EnabledClause restricts lookups to enabled records. Empty means no
	// restriction. The Postgres repository appends it verbatim; it comes
	// from host configuration, never from user input.
	EnabledClause string
}

// Memberships is the provider's group-membership response: the verbatim body
// plus the parsed entries of its "value" array.
type Memberships struct {
	Raw    []byte
	Groups []map[string]interface{}
}

// MembershipSource fetches the authenticated subject's group memberships
// from the identity provider.
type MembershipSource interface {
	Memberships(ctx context.Context) (*Memberships, error)
}
