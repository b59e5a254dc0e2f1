package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetxds/control-plane/internal/discovery"
)

// writeJSON is the admin surface's one response convention: plain JSON,
// no envelope.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func nodeFromQuery(r *http.Request) discovery.Node {
	node := discovery.Node{}
	if id := r.URL.Query().Get("node_id"); id != "" {
		node["id"] = id
	}
	if cluster := r.URL.Query().Get("cluster"); cluster != "" {
		node["cluster"] = cluster
	}
	return node
}

// handleListResourceTypes: GET /admin/resource_types?version=...
func (s *Server) handleListResourceTypes(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	writeJSON(w, s.Admin.ListResourceTypes(version))
}

// handleListResourceNames: GET /admin/{version}/{resource_type}
func (s *Server) handleListResourceNames(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	names, err := s.Admin.ListResourceNames(r.Context(), vars["version"], vars["resource_type"], nodeFromQuery(r))
	if err != nil {
		writeError(w, r, err, s.Debug)
		return
	}
	writeJSON(w, names)
}

// handleFetchResource: GET /admin/{version}/{resource_type}/{name}
func (s *Server) handleFetchResource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	resource, err := s.Admin.FetchResource(r.Context(), vars["version"], vars["resource_type"], vars["name"], nodeFromQuery(r))
	if err != nil {
		writeError(w, r, err, s.Debug)
		return
	}
	writeJSON(w, resource)
}

// handleDumpInstances: GET /admin/instances?scope=a&scope=b
func (s *Server) handleDumpInstances(w http.ResponseWriter, r *http.Request) {
	scopes := r.URL.Query()["scope"]
	if len(scopes) == 0 {
		scopes = []string{"default"}
	}
	writeJSON(w, s.Admin.DumpInstances(scopes))
}

// handleTemplatesMetadata: GET /admin/templates
func (s *Server) handleTemplatesMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Admin.TemplatesMetadata())
}

// handleEffectiveConfig: GET /admin/config
func (s *Server) handleEffectiveConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Admin.EffectiveConfig())
}

// handleHealth: GET /admin/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":     "ok",
		"version":    s.Version,
		"generation": s.Admin.Poller.Snapshot().Generation(),
	})
}

// handleDeepCheck: GET /admin/deep_check
func (s *Server) handleDeepCheck(w http.ResponseWriter, r *http.Request) {
	node := nodeFromQuery(r)
	if len(node) == 0 {
		node = nil // DeepCheck substitutes its synthesized default node
	}
	results := s.Admin.DeepCheck(r.Context(), node)
	writeJSON(w, results)
}

// handleVersion: GET /admin/version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": s.Version})
}

type cryptoRequest struct {
	Text   string `json:"text" validate:"required_without=Scheme"`
	Scheme string `json:"scheme" validate:"omitempty,oneof=aead legacy"`
}

// handleEncrypt: POST /admin/crypto/encrypt
func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req cryptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, err, s.Debug)
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		writeBadRequest(w, r, err, s.Debug)
		return
	}
	ciphertext, err := s.Admin.Encrypt(req.Text)
	if err != nil {
		writeError(w, r, err, s.Debug)
		return
	}
	writeJSON(w, map[string]string{"ciphertext": ciphertext})
}

// handleDecrypt: POST /admin/crypto/decrypt
func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req cryptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, err, s.Debug)
		return
	}
	if err := s.Validate.Struct(req); err != nil {
		writeBadRequest(w, r, err, s.Debug)
		return
	}
	plaintext, err := s.Admin.Decrypt(req.Text)
	if err != nil {
		writeError(w, r, err, s.Debug)
		return
	}
	writeJSON(w, map[string]string{"plaintext": plaintext})
}

// handleDecryptable: GET /admin/crypto/decryptable?text=...
func (s *Server) handleDecryptable(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	writeJSON(w, map[string]bool{"decryptable": s.Admin.Decryptable(text)})
}

// handleGenerateKey: POST /admin/crypto/generate_key
func (s *Server) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	var req cryptoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, err, s.Debug)
		return
	}
	if req.Scheme == "" {
		writeBadRequest(w, r, fmt.Errorf("admin: scheme is required"), s.Debug)
		return
	}
	key, err := s.Admin.GenerateKey(req.Scheme)
	if err != nil {
		writeError(w, r, err, s.Debug)
		return
	}
	writeJSON(w, map[string]string{"key": key})
}

// setupAdminRoutes registers the read-only admin/introspection surface.
func (s *Server) setupAdminRoutes(router *mux.Router) {
	admin := router.PathPrefix("/admin").Subrouter()

	admin.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	admin.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	admin.HandleFunc("/deep_check", s.handleDeepCheck).Methods(http.MethodGet)
	admin.HandleFunc("/config", s.handleEffectiveConfig).Methods(http.MethodGet)
	admin.HandleFunc("/instances", s.handleDumpInstances).Methods(http.MethodGet)
	admin.HandleFunc("/templates", s.handleTemplatesMetadata).Methods(http.MethodGet)
	admin.HandleFunc("/resource_types", s.handleListResourceTypes).Methods(http.MethodGet)
	admin.HandleFunc("/resources/{version}/{resource_type}", s.handleListResourceNames).Methods(http.MethodGet)
	admin.HandleFunc("/resources/{version}/{resource_type}/{name}", s.handleFetchResource).Methods(http.MethodGet)
	admin.HandleFunc("/crypto/encrypt", s.handleEncrypt).Methods(http.MethodPost)
	admin.HandleFunc("/crypto/decrypt", s.handleDecrypt).Methods(http.MethodPost)
	admin.HandleFunc("/crypto/decryptable", s.handleDecryptable).Methods(http.MethodGet)
	admin.HandleFunc("/crypto/generate_key", s.handleGenerateKey).Methods(http.MethodPost)
	admin.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	admin.HandleFunc("/logs/tail", s.handleLogTail)
}
