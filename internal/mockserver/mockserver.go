// Package mockserver is a fake LicenseSeat HTTP backend: it implements
// the wire contract the coordinator's API Layer speaks (activate,
// deactivate, validate, offline-token, signing-keys, heartbeat, health)
// well enough to drive integration tests against a real net/http
// listener instead of a hand-rolled transport.Adapter stub. It also
// exposes fault injection so tests can exercise the retry/backoff and
// offline-fallback paths deterministically.
package mockserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

// License is the server-side record the mock keeps per license key. It
// is intentionally simpler than pkg/licenseseat/model.License: the mock
// only needs enough fields to answer activate/validate convincingly.
type License struct {
	Key          string
	ProductSlug  string
	PlanKey      string
	Status       string // "active", "revoked", "suspended"
	ExpiresAt    *time.Time
	Entitlements []string
	DeviceID     string // empty until activated
	ActivationID string
}

// Fault lets a test force the next N matching requests to fail a
// specific way instead of being served normally.
type Fault struct {
	Path    string // exact request path to match, e.g. "/products/acme/licenses/KEY-1/validate"
	Status  int    // HTTP status to return instead
	Remain  int    // number of matching requests left to fault; decremented per hit
	Network bool   // if true, the handler hijacks and closes the connection to simulate a network failure
}

// Server is the mock LicenseSeat backend.
type Server struct {
	mu        sync.Mutex
	licenses  map[string]*License // keyed by "product/key"
	faults    []*Fault
	signKey   ed25519.PrivateKey
	signKeyID string

	router http.Handler
}

// New constructs a Server with a fresh Ed25519 signing key.
func New() *Server {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic("mockserver: generate signing key: " + err.Error())
	}
	s := &Server{
		licenses:  make(map[string]*License),
		signKey:   priv,
		signKeyID: "mock-" + base64.RawURLEncoding.EncodeToString(pub[:4]),
	}
	s.router = s.routes()
	return s
}

// Handler returns the http.Handler the test's httptest.Server should
// serve.
func (s *Server) Handler() http.Handler { return s.router }

// Seed registers a license the mock will answer activate/validate calls
// for.
func (s *Server) Seed(lic License) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lic.Status == "" {
		lic.Status = "active"
	}
	s.licenses[lic.ProductSlug+"/"+lic.Key] = &lic
}

// InjectFault queues a fault matched by exact request path. Faults are
// consumed in FIFO order and removed once their Remain count reaches
// zero.
func (s *Server) InjectFault(f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Remain <= 0 {
		f.Remain = 1
	}
	s.faults = append(s.faults, &f)
}

func (s *Server) takeFault(path string) *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.Path != path {
			continue
		}
		f.Remain--
		if f.Remain <= 0 {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
		}
		cp := *f
		return &cp
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(httprate.LimitByIP(600, time.Minute))

	r.Get("/health", s.handleHealth)
	r.Route("/products/{slug}/licenses/{key}", func(r chi.Router) {
		r.Post("/activate", s.handleActivate)
		r.Post("/deactivate", s.handleDeactivate)
		r.Post("/validate", s.handleValidate)
		r.Post("/offline-token", s.handleOfflineToken)
		r.Post("/heartbeat", s.handleHeartbeat)
	})
	r.Get("/signing-keys/{kid}", s.handleSigningKey)

	return r
}

func (s *Server) faultOrServe(w http.ResponseWriter, r *http.Request, serve func()) {
	if f := s.takeFault(r.URL.Path); f != nil {
		if f.Network {
			hj, ok := w.(http.Hijacker)
			if ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					conn.Close()
					return
				}
			}
			// Fall back to a connection-reset-flavored status if this
			// ResponseWriter can't be hijacked (e.g. HTTP/2 test transport).
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeError(w, f.Status, "injected_fault", "fault injected by test")
		return
	}
	serve()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "api_version": "v1"})
	})
}

func (s *Server) lookup(slug, key string) (*License, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lic, ok := s.licenses[slug+"/"+key]
	return lic, ok
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		slug, key := chi.URLParam(r, "slug"), chi.URLParam(r, "key")
		var body struct {
			DeviceID string `json:"device_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		lic, ok := s.lookup(slug, key)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "unknown license key")
			return
		}

		s.mu.Lock()
		lic.DeviceID = body.DeviceID
		lic.ActivationID = uuid.NewString()
		activationID := lic.ActivationID
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"activation_id": activationID,
			"activated_at":  time.Now().UTC().Format(time.RFC3339),
			"license":       s.licensePayload(lic),
		})
	})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		slug, key := chi.URLParam(r, "slug"), chi.URLParam(r, "key")
		lic, ok := s.lookup(slug, key)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "unknown license key")
			return
		}
		s.mu.Lock()
		activationID := lic.ActivationID
		lic.DeviceID = ""
		lic.ActivationID = ""
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"activation_id":  activationID,
			"deactivated_at": time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		slug, key := chi.URLParam(r, "slug"), chi.URLParam(r, "key")
		lic, ok := s.lookup(slug, key)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "unknown license key")
			return
		}

		s.mu.Lock()
		status := lic.Status
		expired := lic.ExpiresAt != nil && lic.ExpiresAt.Before(time.Now())
		s.mu.Unlock()

		switch {
		case status == "revoked":
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "code": "license_revoked", "message": "license was revoked"})
		case status == "suspended":
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "code": "license_suspended", "message": "license is suspended"})
		case expired:
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "code": "expired", "message": "license expired"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"valid":               true,
				"license":             s.licensePayload(lic),
				"active_entitlements": s.entitlementsPayload(lic),
			})
		}
	})
}

func (s *Server) handleOfflineToken(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		slug, key := chi.URLParam(r, "slug"), chi.URLParam(r, "key")
		lic, ok := s.lookup(slug, key)
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "unknown license key")
			return
		}

		now := time.Now()
		token := offlineTokenPayload{
			SchemaVersion: 1,
			LicenseKey:    lic.Key,
			ProductSlug:   lic.ProductSlug,
			PlanKey:       lic.PlanKey,
			DeviceID:      lic.DeviceID,
			IssuedAt:      now.Unix(),
			NotBefore:     now.Unix(),
			ExpiresAt:     now.Add(7 * 24 * time.Hour).Unix(),
			SigningKeyID:  s.signKeyID,
		}
		for _, e := range lic.Entitlements {
			token.Entitlements = append(token.Entitlements, offlineEntitlementPayload{Key: e})
		}

		canonical, err := json.Marshal(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", "failed to canonicalize token")
			return
		}
		sig := ed25519.Sign(s.signKey, canonical)

		writeJSON(w, http.StatusOK, map[string]any{
			"token": token,
			"signature": map[string]string{
				"algorithm": "ed25519",
				"key_id":    s.signKeyID,
				"value":     base64.RawURLEncoding.EncodeToString(sig),
			},
			"canonical": string(canonical),
		})
	})
}

func (s *Server) handleSigningKey(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		kid := chi.URLParam(r, "kid")
		if kid != s.signKeyID {
			writeError(w, http.StatusNotFound, "not_found", "unknown signing key")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"public_key": base64.StdEncoding.EncodeToString(s.signKey.Public().(ed25519.PublicKey)),
			"key_id":     s.signKeyID,
			"algorithm":  "ed25519",
			"status":     "active",
		})
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	s.faultOrServe(w, r, func() {
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) licensePayload(lic *License) map[string]any {
	payload := map[string]any{
		"key":                 lic.Key,
		"product_slug":        lic.ProductSlug,
		"device_id":           lic.DeviceID,
		"status":              lic.Status,
		"plan_key":            lic.PlanKey,
		"active_seats":        1,
		"active_entitlements": s.entitlementsPayload(lic),
	}
	if lic.ExpiresAt != nil {
		payload["expires_at"] = lic.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return payload
}

func (s *Server) entitlementsPayload(lic *License) []map[string]string {
	out := make([]map[string]string, 0, len(lic.Entitlements))
	for _, e := range lic.Entitlements {
		out = append(out, map[string]string{"key": e})
	}
	return out
}

// offlineTokenPayload uses the same JSON names as the matching fields of
// model.OfflineToken (a subset of them), so the client can unmarshal it.
// Its json.Marshal output is the canonical byte string that is signed
// and sent alongside the token.
type offlineTokenPayload struct {
	SchemaVersion int                         `json:"schema_version"`
	LicenseKey    string                      `json:"license_key"`
	ProductSlug   string                      `json:"product_slug"`
	PlanKey       string                      `json:"plan_key,omitempty"`
	DeviceID      string                      `json:"device_id"`
	IssuedAt      int64                       `json:"iat"`
	NotBefore     int64                       `json:"nbf"`
	ExpiresAt     int64                       `json:"exp"`
	SigningKeyID  string                      `json:"kid"`
	Entitlements  []offlineEntitlementPayload `json:"entitlements,omitempty"`
}

type offlineEntitlementPayload struct {
	Key       string `json:"key"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
