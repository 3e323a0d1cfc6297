package handlers

import (
	"net/http"
	"testing"

	"github.com/salarypath/backend/internal/models"
)

func TestCompanyCRUD(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "owner@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/companies", map[string]any{
		"name":     "Acme GmbH",
		"industry": "software",
		"location": "Berlin",
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	companyID, _ := data["id"].(string)
	if companyID == "" {
		t.Fatal("expected a company id")
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/companies/"+companyID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	data, _ = body["data"].(map[string]any)
	if data["name"] != "Acme GmbH" {
		t.Fatalf("expected company name Acme GmbH, got %v", data["name"])
	}

	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/companies/"+companyID, map[string]any{
		"name": "Acme AG",
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	data, _ = body["data"].(map[string]any)
	if data["name"] != "Acme AG" {
		t.Fatalf("rename not applied: %v", data["name"])
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/companies", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	list, _ := body["data"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 company, got %d", len(list))
	}

	resp = performRequest(t, env.app, http.MethodDelete, "/api/companies/"+companyID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = performRequest(t, env.app, http.MethodGet, "/api/companies/"+companyID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestCompanyValidation(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "owner@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/companies", map[string]any{
		"name": "   ",
	}, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertErrorResponse(t, resp.StatusCode, body, http.StatusBadRequest, "name is required")

	resp = performRequest(t, env.app, http.MethodGet, "/api/companies/not-a-uuid", nil, authHeaders(token))
	body = decodeJSONMap(t, resp)
	assertErrorResponse(t, resp.StatusCode, body, http.StatusBadRequest, "invalid company id")
}

func TestCompaniesAreOwnerScoped(t *testing.T) {
	env := setupTestEnv(t)
	_, tokenA := createTestUser(t, env.db, "alice@example.com", "password123", models.UserRoleUser)
	_, tokenB := createTestUser(t, env.db, "bob@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/companies", map[string]any{
		"name": "Alice Corp",
	}, authHeaders(tokenA))
	assertStatus(t, resp, http.StatusCreated)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	companyID, _ := data["id"].(string)

	// Bob cannot read, rename, or delete Alice's company.
	resp = performRequest(t, env.app, http.MethodGet, "/api/companies/"+companyID, nil, authHeaders(tokenB))
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/companies/"+companyID, map[string]any{
		"name": "Bob Corp",
	}, authHeaders(tokenB))
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = performRequest(t, env.app, http.MethodDelete, "/api/companies/"+companyID, nil, authHeaders(tokenB))
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()

	resp = performRequest(t, env.app, http.MethodGet, "/api/companies", nil, authHeaders(tokenB))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	list, _ := body["data"].([]any)
	if len(list) != 0 {
		t.Fatalf("expected Bob to see no companies, got %d", len(list))
	}
}
