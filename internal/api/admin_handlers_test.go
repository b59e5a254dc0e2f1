package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetxds/control-plane/internal/cipher"
)

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAdminHealth(t *testing.T) {
	s := testServer(t)
	rr := get(t, s.NewRouter(), "/admin/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.NotEmpty(t, body["generation"])
}

func TestAdminListResourceNames(t *testing.T) {
	s := testServer(t)
	rr := get(t, s.NewRouter(), "/admin/resources/1.25.3/clusters?cluster=T1")
	require.Equal(t, http.StatusOK, rr.Code)

	var names []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &names))
	assert.Equal(t, []string{"a"}, names)
}

func TestAdminFetchResource(t *testing.T) {
	s := testServer(t)
	router := s.NewRouter()

	rr := get(t, router, "/admin/resources/1.25.3/clusters/a?cluster=T1")
	require.Equal(t, http.StatusOK, rr.Code)

	var resource map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resource))
	assert.Equal(t, "a", resource["name"])

	rr = get(t, router, "/admin/resources/1.25.3/clusters/nope?cluster=T1")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestAdminTemplatesMetadata(t *testing.T) {
	s := testServer(t)
	rr := get(t, s.NewRouter(), "/admin/templates")
	require.Equal(t, http.StatusOK, rr.Code)

	var metas []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &metas))
	require.Len(t, metas, 1)
	assert.Equal(t, "clusters", metas[0]["resource_type"])
}

func TestAdminDeepCheck(t *testing.T) {
	s := testServer(t)
	rr := get(t, s.NewRouter(), "/admin/deep_check")
	require.Equal(t, http.StatusOK, rr.Code)

	var results []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, true, results[0]["ok"])
}

func TestAdminCryptoRoundTrip(t *testing.T) {
	s := testServer(t)
	secret, err := cipher.NewAEADKey()
	require.NoError(t, err)
	suite, err := cipher.NewSuite([]cipher.Key{{ID: "k1", Scheme: "aead", Secret: secret}})
	require.NoError(t, err)
	s.Admin.Cipher = suite

	router := s.NewRouter()

	payload, err := json.Marshal(map[string]string{"text": "s1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/crypto/encrypt", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var encResp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &encResp))
	require.NotEmpty(t, encResp["ciphertext"])

	rr = get(t, router, "/admin/crypto/decryptable?text="+url.QueryEscape(encResp["ciphertext"]))
	require.Equal(t, http.StatusOK, rr.Code)
	var decable map[string]bool
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decable))
	assert.True(t, decable["decryptable"])

	payload, err = json.Marshal(map[string]string{"text": encResp["ciphertext"]})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/admin/crypto/decrypt", bytes.NewReader(payload))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var decResp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decResp))
	assert.Equal(t, "s1", decResp["plaintext"])
}

func TestAdminGenerateKeyRequiresScheme(t *testing.T) {
	s := testServer(t)
	router := s.NewRouter()

	req := httptest.NewRequest(http.MethodPost, "/admin/crypto/generate_key", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/crypto/generate_key", bytes.NewReader([]byte(`{"scheme":"aead"}`)))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var keyResp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &keyResp))
	assert.NotEmpty(t, keyResp["key"])
}
