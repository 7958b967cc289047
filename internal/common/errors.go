// Package common defines shared sentinel errors used across the credential
// core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")
	ErrorStorage  = errors.New("storage error")
	ErrorDelivery = errors.New("could not deliver notification")

	// Input validation (caller's fault, no state changed).
	ErrorValidation = errors.New("validation error")

	// Login path. ErrorInvalidCredentials covers both unknown username and
	// wrong password so the response never reveals whether an account exists.
	ErrorInvalidCredentials = errors.New("username or password incorrect")
	ErrorAccountLocked      = errors.New("maximum login attempts exceeded")

	// Registration.
	ErrorAlreadyExists = errors.New("username or email already taken")

	// Credential change / reset.
	ErrorIncorrectOldPassword = errors.New("incorrect old password")
	ErrorSamePassword         = errors.New("current password and new password are the same")
	ErrorPasswordReused       = errors.New("new password matches a recently used password")

	// Verification codes.
	ErrorCodeInvalidOrExpired = errors.New("incorrect or invalid verification code")
	ErrorNotVerified          = errors.New("verification code has not been confirmed")
)
