// Command licenseseatctl is a standalone operator tool around the
// licenseseat SDK: generate signing keypairs, activate/deactivate a
// license on this machine, and inspect the cached status without
// writing a line of Go.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/licenseseat/sdk-go/internal/config"
	"github.com/licenseseat/sdk-go/pkg/licenseseat"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "keygen":
		keygenCmd(os.Args[2:])
	case "activate":
		activateCmd(os.Args[2:])
	case "deactivate":
		deactivateCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	case "status":
		statusCmd(os.Args[2:])
	case "entitlements":
		entitlementsCmd(os.Args[2:])
	case "reset":
		resetCmd(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n", exe)
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  keygen        Generate an Ed25519 signing keypair\n")
	fmt.Fprintf(os.Stderr, "  activate      Activate a license key on this device\n")
	fmt.Fprintf(os.Stderr, "  deactivate    Deactivate the currently cached license\n")
	fmt.Fprintf(os.Stderr, "  validate      Force an immediate validation cycle\n")
	fmt.Fprintf(os.Stderr, "  status        Print the cached license status\n")
	fmt.Fprintf(os.Stderr, "  entitlements  List entitlements and whether each is active\n")
	fmt.Fprintf(os.Stderr, "  reset         Wipe the local cache and de-configure the device\n")
}

// sharedFlags are accepted by every command that constructs a Client.
type sharedFlags struct {
	fs          *flag.FlagSet
	apiKey      *string
	productSlug *string
	baseURL     *string
	debug       *bool
}

func newSharedFlags(name string) *sharedFlags {
	env := config.Load()
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return &sharedFlags{
		fs:          fs,
		apiKey:      fs.String("api-key", env.APIKey, "API key (default from LICENSESEAT_API_KEY)"),
		productSlug: fs.String("product", env.ProductSlug, "product slug (default from LICENSESEAT_PRODUCT)"),
		baseURL:     fs.String("base-url", env.APIBaseURL, "override the API base URL"),
		debug:       fs.Bool("debug", env.Debug, "log diagnostic output to stderr"),
	}
}

func (s *sharedFlags) client() (*licenseseat.Client, error) {
	if *s.apiKey == "" || *s.productSlug == "" {
		return nil, fmt.Errorf("-api-key and -product are required (or set LICENSESEAT_API_KEY / LICENSESEAT_PRODUCT)")
	}
	env := config.Load()
	cfg := licenseseat.DefaultConfig()
	cfg.APIKey = *s.apiKey
	cfg.ProductSlug = *s.productSlug
	cfg.APIBaseURL = *s.baseURL
	cfg.AutoValidateInterval = env.AutoValidateInterval
	cfg.HeartbeatInterval = env.HeartbeatInterval
	cfg.MaxRetries = env.MaxRetries
	cfg.RetryDelay = env.RetryDelay
	cfg.HTTPTimeout = env.HTTPTimeout
	cfg.OfflineFallbackMode = licenseseat.OfflineFallbackMode(env.OfflineFallbackMode)
	cfg.MaxOfflineDays = env.MaxOfflineDays
	cfg.MaxClockSkew = env.MaxClockSkew
	cfg.StoragePrefix = env.StoragePrefix
	if *s.debug {
		cfg.Debug = true
		cfg.Logger = func(format string, args ...any) { fmt.Fprintf(os.Stderr, format+"\n", args...) }
	}
	return licenseseat.New(cfg, nil, nil)
}

func keygenCmd(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	kid := fs.String("kid", "", "key id to embed in the printed output")
	_ = fs.Parse(args)

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Ed25519 signing keypair ===")
	fmt.Println()
	if *kid != "" {
		fmt.Printf("Key ID:     %s\n", *kid)
	}
	fmt.Printf("Public key:  %s\n", base64.StdEncoding.EncodeToString(pub))
	fmt.Printf("Private key: %s\n", base64.StdEncoding.EncodeToString(priv))
	fmt.Println()
	fmt.Println("Keep the private key on the license server only; ship the public key to clients.")
}

func activateCmd(args []string) {
	sf := newSharedFlags("activate")
	deviceID := sf.fs.String("device-id", "", "device identifier override")
	deviceName := sf.fs.String("device-name", "", "human-readable device label")
	_ = sf.fs.Parse(args)
	rest := sf.fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "activate requires exactly one positional argument: the license key")
		sf.fs.Usage()
		os.Exit(2)
	}

	c, err := sf.client()
	if err != nil {
		fail(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lic, err := c.Activate(ctx, rest[0], licenseseat.ActivateOptions{
		DeviceID: *deviceID,
		Metadata: map[string]any{"device_name": *deviceName},
	})
	if err != nil {
		fail(fmt.Errorf("activation failed: %w", err))
	}
	fmt.Printf("activated: %s (product %s, device %s)\n", lic.Key, lic.ProductSlug, lic.DeviceID)
}

func deactivateCmd(args []string) {
	sf := newSharedFlags("deactivate")
	_ = sf.fs.Parse(args)

	c, err := sf.client()
	if err != nil {
		fail(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Deactivate(ctx); err != nil {
		fail(fmt.Errorf("deactivation failed: %w", err))
	}
	fmt.Println("deactivated")
}

func validateCmd(args []string) {
	sf := newSharedFlags("validate")
	_ = sf.fs.Parse(args)
	rest := sf.fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "validate requires exactly one positional argument: the license key")
		os.Exit(2)
	}

	c, err := sf.client()
	if err != nil {
		fail(err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result, err := c.Validate(ctx, rest[0], licenseseat.ValidateOptions{})
	if err != nil {
		fail(fmt.Errorf("validation error: %w", err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	if !result.Valid {
		os.Exit(1)
	}
}

func statusCmd(args []string) {
	sf := newSharedFlags("status")
	asJSON := sf.fs.Bool("json", false, "print status as JSON")
	_ = sf.fs.Parse(args)

	c, err := sf.client()
	if err != nil {
		fail(err)
	}
	defer c.Close()

	status := c.Status()
	lic := c.CurrentLicense()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"status": status, "license": lic})
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  LICENSESEAT STATUS")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "  State:\t%s\n", status.StatusType)
	if status.Details != nil {
		if reason, ok := status.Details["reason"]; ok {
			fmt.Fprintf(w, "  Reason:\t%v\n", reason)
		}
	}
	fmt.Fprintln(w, "")

	if lic == nil {
		fmt.Fprintln(w, "  No license cached on this device.")
		fmt.Fprintln(w, "")
		return
	}

	fmt.Fprintf(w, "  License key:\t%s\n", lic.Key)
	fmt.Fprintf(w, "  Product:\t%s\n", lic.ProductSlug)
	fmt.Fprintf(w, "  Device:\t%s\n", lic.DeviceID)
	fmt.Fprintf(w, "  Status:\t%s\n", lic.Status)
	if lic.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires:\t%s\n", lic.ExpiresAt.Format(time.RFC3339))
	}
	if lic.PlanKey != "" {
		fmt.Fprintf(w, "  Plan:\t%s\n", lic.PlanKey)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  Entitlements:")
	for _, e := range lic.ActiveEntitlements {
		fmt.Fprintf(w, "    - %s\n", e.Key)
	}
	fmt.Fprintln(w, "")
}

func entitlementsCmd(args []string) {
	sf := newSharedFlags("entitlements")
	_ = sf.fs.Parse(args)
	rest := sf.fs.Args()

	c, err := sf.client()
	if err != nil {
		fail(err)
	}
	defer c.Close()

	lic := c.CurrentLicense()
	if lic == nil {
		fmt.Fprintln(os.Stderr, "no license cached on this device")
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "Key\tActive\tReason")
	fmt.Fprintln(w, strings.Repeat("-", 40))

	keys := rest
	if len(keys) == 0 {
		for _, e := range lic.ActiveEntitlements {
			keys = append(keys, e.Key)
		}
	}
	for _, k := range keys {
		check := c.CheckEntitlement(k)
		fmt.Fprintf(w, "%s\t%v\t%s\n", k, check.Active, check.Reason)
	}
}

func resetCmd(args []string) {
	sf := newSharedFlags("reset")
	_ = sf.fs.Parse(args)

	c, err := sf.client()
	if err != nil {
		fail(err)
	}
	c.Reset()
	c.Close()
	fmt.Println("reset")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
