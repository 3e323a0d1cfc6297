package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/salarypath/backend/internal/models"
)

func enrollTOTP(t *testing.T, env *testEnv, token string) string {
	t.Helper()

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/totp/setup", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	secret, _ := data["secret"].(string)
	if secret == "" {
		t.Fatal("expected a totp secret from setup")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("failed generating totp code: %v", err)
	}

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/totp/verify-setup",
		map[string]any{"code": code}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	return secret
}

func TestTOTPEnrollmentFlow(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env.db, "totp@example.com", "password123", models.UserRoleUser)

	resp := performRequest(t, env.app, http.MethodGet, "/api/totp/status", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	if data["totpEnabled"] != false {
		t.Fatalf("expected totpEnabled=false before enrollment, got %v", data)
	}

	secret := enrollTOTP(t, env, token)

	resp = performRequest(t, env.app, http.MethodGet, "/api/totp/status", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	data, _ = body["data"].(map[string]any)
	if data["totpEnabled"] != true {
		t.Fatalf("expected totpEnabled=true after enrollment, got %v", data)
	}

	// The stored secret is encrypted, never the raw value.
	var cred models.TOTPCredential
	if err := env.db.First(&cred, "user_id = ?", user.ID).Error; err != nil {
		t.Fatalf("failed loading credential: %v", err)
	}
	if cred.Secret == secret {
		t.Fatal("totp secret stored in plaintext")
	}
}

func TestTOTPVerifySetupRejectsWrongCode(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "totp@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/totp/setup", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/totp/verify-setup",
		map[string]any{"code": "000000"}, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertErrorResponse(t, resp.StatusCode, body, http.StatusBadRequest, "invalid authenticator code")
}

func TestTOTPSetupConflictsWhenEnabled(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "totp@example.com", "password123", models.UserRoleUser)

	enrollTOTP(t, env, token)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/totp/setup", nil, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertErrorResponse(t, resp.StatusCode, body, http.StatusConflict, "authenticator is already enabled")
}

func TestTOTPDisable(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "totp@example.com", "password123", models.UserRoleUser)

	secret := enrollTOTP(t, env, token)
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("failed generating totp code: %v", err)
	}

	t.Run("rejects wrong password", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/totp/disable",
			map[string]any{"password": "wrong", "code": code}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertErrorResponse(t, resp.StatusCode, body, http.StatusUnauthorized, "invalid password")
	})

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/totp/disable",
		map[string]any{"password": "password123", "code": code}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = performRequest(t, env.app, http.MethodGet, "/api/totp/status", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	if data["totpEnabled"] != false {
		t.Fatalf("expected totpEnabled=false after disable, got %v", data)
	}
}
