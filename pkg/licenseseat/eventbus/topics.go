package eventbus

// Stable topic names used by the coordinator. Callers that only want a
// pull model can ignore the bus entirely and poll Client.Status()
// instead.
const (
	TopicActivationStart = "activation:start"
	TopicActivationOK    = "activation:success"
	TopicActivationError = "activation:error"

	TopicDeactivationStart = "deactivation:start"
	TopicDeactivationOK    = "deactivation:success"
	TopicDeactivationError = "deactivation:error"

	TopicValidationStart         = "validation:start"
	TopicValidationOK            = "validation:success"
	TopicValidationFailed        = "validation:failed"
	TopicValidationError         = "validation:error"
	TopicValidationAutoFailed    = "validation:auto-failed"
	TopicValidationAuthFailed    = "validation:auth-failed"
	TopicValidationOfflineOK     = "validation:offline-success"
	TopicValidationOfflineFailed = "validation:offline-failed"

	TopicLicenseLoaded  = "license:loaded"
	TopicLicenseRevoked = "license:revoked"

	TopicOfflineFetching           = "offlineLicense:fetching"
	TopicOfflineFetched            = "offlineLicense:fetched"
	TopicOfflineFetchError         = "offlineLicense:fetchError"
	TopicOfflineReady              = "offlineLicense:ready"
	TopicOfflineVerified           = "offlineLicense:verified"
	TopicOfflineVerificationFailed = "offlineLicense:verificationFailed"

	TopicAutovalidationCycle   = "autovalidation:cycle"
	TopicAutovalidationStopped = "autovalidation:stopped"

	TopicNetworkOnline  = "network:online"
	TopicNetworkOffline = "network:offline"

	TopicAuthTestStart = "auth_test:start"
	TopicAuthTestOK    = "auth_test:success"
	TopicAuthTestError = "auth_test:error"

	TopicHeartbeatOK    = "heartbeat:success"
	TopicHeartbeatError = "heartbeat:error"

	TopicSDKReset     = "sdk:reset"
	TopicSDKError     = "sdk:error"
	TopicSDKDestroyed = "sdk:destroyed"
)
