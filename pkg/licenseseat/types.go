package licenseseat

import "github.com/licenseseat/sdk-go/pkg/licenseseat/model"

// The public API re-exports the domain model from the internal model
// package so callers never need to import it directly, while cache,
// api and crypto subpackages can share the same types without an
// import cycle back through the root package.
type (
	License            = model.License
	Entitlement        = model.Entitlement
	OfflineToken       = model.OfflineToken
	OfflineEntitlement = model.OfflineEntitlement
	TokenSignature     = model.TokenSignature
	PublicKey          = model.PublicKey
	ValidationResult   = model.ValidationResult
	LicenseStatus      = model.LicenseStatus
	StatusType         = model.StatusType
	Status             = model.Status
	EntitlementCheck   = model.EntitlementCheck
	EntitlementReason  = model.EntitlementReason
)

const (
	StatusActive    = model.StatusActive
	StatusExpired   = model.StatusExpired
	StatusSuspended = model.StatusSuspended
	StatusRevoked   = model.StatusRevoked
	StatusUnknown   = model.StatusUnknown

	StatusInactive       = model.StatusInactive
	StatusPending        = model.StatusPending
	StatusTypeActive     = model.StatusTypeActive
	StatusInvalid        = model.StatusInvalid
	StatusOfflineValid   = model.StatusOfflineValid
	StatusOfflineInvalid = model.StatusOfflineInvalid

	ReasonActive    = model.ReasonActive
	ReasonNoLicense = model.ReasonNoLicense
	ReasonNotFound  = model.ReasonNotFound
	ReasonExpired   = model.ReasonExpired
)
