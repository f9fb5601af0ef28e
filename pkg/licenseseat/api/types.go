package api

import "github.com/licenseseat/sdk-go/pkg/licenseseat/model"

// ActivateRequest is the body of the activate endpoint.
type ActivateRequest struct {
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ActivateResponse is the activate endpoint's response.
type ActivateResponse struct {
	ActivationID string        `json:"activation_id"`
	ActivatedAt  string        `json:"activated_at"`
	License      model.License `json:"license"`
}

// DeactivateRequest is the body of the deactivate endpoint.
type DeactivateRequest struct {
	DeviceID string `json:"device_id"`
}

// DeactivateResponse is the deactivate endpoint's response.
type DeactivateResponse struct {
	ActivationID  string `json:"activation_id"`
	DeactivatedAt string `json:"deactivated_at"`
}

// ValidateRequest is the body of the validate endpoint.
type ValidateRequest struct {
	DeviceID    string `json:"device_id,omitempty"`
	ProductSlug string `json:"product_slug,omitempty"`
}

// ValidateResponse is the validate endpoint's response.
type ValidateResponse struct {
	Valid              bool                 `json:"valid"`
	Code               string               `json:"code,omitempty"`
	Message            string               `json:"message,omitempty"`
	Warnings           []string             `json:"warnings,omitempty"`
	License            *model.License       `json:"license,omitempty"`
	ActiveEntitlements []model.Entitlement  `json:"active_entitlements,omitempty"`
}

// OfflineTokenResponse is the offline-token endpoint's response.
type OfflineTokenResponse struct {
	Token     model.OfflineToken   `json:"token"`
	Signature model.TokenSignature `json:"signature"`
	Canonical string               `json:"canonical"`
}

// SigningKeyResponse is the signing-key endpoint's response.
type SigningKeyResponse struct {
	PublicKey string `json:"public_key"`
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm"`
	Status    string `json:"status"`
}

// HealthResponse is the health endpoint's response.
type HealthResponse struct {
	Status     string `json:"status"`
	APIVersion string `json:"api_version"`
}
