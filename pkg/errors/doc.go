// Package errors provides structured error handling with error codes for entra-be-auth.
//
// This package standardizes error handling across all services with typed error codes,
// error wrapping, and automatic HTTP status code mapping.
//
// # Overview
//
// The errors package provides:
//   - Structured Error type with error codes
//   - Predefined error codes for authentication and provisioning scenarios
//   - Error wrapping with context
//   - HTTP status code mapping
//   - Error inspection utilities
//
// # Basic Usage
//
// Creating errors with codes:
//
//	import "github.com/different-technology/entra-be-auth/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeNoEmailClaim, "no email address in provider profile")
//
//	// Wrap an existing error
//	err := errors.Wrap(dbErr, errors.ErrCodeStorageFailure, "failed to update user record")
//
//	// Attach operator-facing details
//	err := errors.New(errors.ErrCodeInvalidClientSecret, "client secret rejected").
//		WithDetail("remediation", "rotate the client secret in the provider portal")
//
// # Error Codes
//
// Identity provider:
//   - ErrCodeProviderRejected
//   - ErrCodeInvalidClientSecret
//   - ErrCodeMalformedToken
//   - ErrCodeNoEmailClaim
//
// User store:
//   - ErrCodeUserNotFound
//   - ErrCodeUserDisabled
//   - ErrCodeStorageFailure
//
// Inspection:
//
//	if errors.IsCode(err, errors.ErrCodeInvalidClientSecret) {
//		// surface the remediation hint to the operator log
//	}
package errors
