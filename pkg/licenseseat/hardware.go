package licenseseat

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/user"
	"runtime"
)

// StableAttributes are the machine attributes the device identifier is
// derived from: machine name, user name, and OS version.
type StableAttributes struct {
	MachineName string
	UserName    string
	OSVersion   string
}

// CollectStableAttributes gathers the three attributes the device
// identifier hashes. OSVersion is set to runtime.GOOS, the operating
// system name; no OS release version is read. MachineName and UserName
// fall back to an empty string if unavailable so GenerateDeviceID stays
// deterministic per-process rather than failing outright.
func CollectStableAttributes() StableAttributes {
	attrs := StableAttributes{OSVersion: runtime.GOOS}

	if name, err := os.Hostname(); err == nil {
		attrs.MachineName = name
	}
	if u, err := user.Current(); err == nil {
		attrs.UserName = u.Username
	}

	return attrs
}

// GenerateDeviceID hashes machine-name|user-name|os-version with
// SHA-256 and truncates to 16 bytes (32 hex chars), the device
// identifier algorithm used when no user-supplied id is given.
func GenerateDeviceID(attrs StableAttributes) string {
	data := attrs.MachineName + "|" + attrs.UserName + "|" + attrs.OSVersion
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:16])
}

// FallbackDeviceID is used when the primary attributes are unavailable,
// e.g. a container with no stable hostname. It hashes the hostname and
// returns "" when no hostname is available; no other identity signal is
// consulted.
func FallbackDeviceID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		sum := sha256.Sum256([]byte(hostname))
		return "host-" + hex.EncodeToString(sum[:12])
	}
	return ""
}

// ResolveDeviceID returns userSupplied unchanged if non-empty, otherwise
// derives one from the current machine's stable attributes, falling
// back to FallbackDeviceID if those are empty.
func ResolveDeviceID(userSupplied string) string {
	if userSupplied != "" {
		return userSupplied
	}

	attrs := CollectStableAttributes()
	if attrs.MachineName != "" || attrs.UserName != "" {
		return GenerateDeviceID(attrs)
	}

	return FallbackDeviceID()
}
