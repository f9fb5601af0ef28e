package licenseseat

import "errors"

// Configuration errors surface synchronously and are never retried.
var (
	ErrAPIKeyRequired      = errors.New("config: api_key_required")
	ErrProductSlugRequired = errors.New("config: product_slug_required")
)

// ErrNoLicense is a license-semantic error bubbled to the caller
// verbatim, e.g. from Deactivate when nothing is cached to deactivate.
var ErrNoLicense = errors.New("license: no_license")

// ErrLicenseMismatch is both a license-semantic and a crypto/offline-path
// error: validateOffline returns it (via offlineFailure, converted to a
// failed ValidationResult, never thrown to the caller) when a cached
// offline token's license key or device id no longer matches the
// license it was issued against.
var ErrLicenseMismatch = errors.New("license: license_mismatch")

// Crypto/offline-path errors. These never propagate to a caller as a Go
// error; offlineFailure converts them into a failed ValidationResult
// with Offline=true and the matching Code.
var (
	ErrOfflineNoToken     = errors.New("crypto: offline_no_token")
	ErrClockTamper        = errors.New("crypto: clock_tamper")
	ErrSignatureInvalid   = errors.New("crypto: signature_invalid")
	ErrNoPublicKey        = errors.New("crypto: no_public_key")
	ErrOfflineExpired     = errors.New("crypto: expired")
	ErrOfflineNotYetValid = errors.New("crypto: not_yet_valid")
)
