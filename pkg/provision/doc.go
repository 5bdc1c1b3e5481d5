// Package provision reconciles identities resolved by an authentication
// service against the local backend-user store.
//
// The provisioning service looks up a record by its lower-cased email-style
// identifier (subject to the host's enabled filter), creates one on first
// login, and updates the computed profile fields on every subsequent login.
// Role and profile assignments are derived from provider group memberships
// through a declarative field-merge rule table.
//
// # Merge rules
//
// A FieldRules set splits assignments into override entries (last writer
// wins) and append entries. Appending to the list-valued group field merges
// both comma-separated lists into their deduplicated union in order of first
// occurrence; appending to any other field concatenates the value as a
// string suffix.
//
//	fields := provision.FieldMap{}
//	provision.MergeFields(fields, provision.FieldRules{
//		Append: map[string]string{provision.FieldUserGroups: "editor,viewer"},
//	})
//
// # Storage
//
// Two UserRepository implementations ship with the package: a Postgres one
// built on pgx, and an in-memory one for tests and demos. Storage failures
// propagate to callers unchanged.
package provision
