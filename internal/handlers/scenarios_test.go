package handlers

import (
	"math"
	"net/http"
	"testing"

	"github.com/salarypath/backend/internal/models"
)

// verifyStepUp walks a user through the email verification flow so the
// comparison gate opens.
func verifyStepUp(t *testing.T, env *testEnv, token string) {
	t.Helper()

	code := sendStepUpCode(t, env, token)
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/step-up/verify",
		map[string]any{"routeKey": "comparison", "code": code}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestScenarioCRUD(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "plans@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/scenarios", map[string]any{
		"name":        "Stay put",
		"baseSalary":  85000,
		"annualBonus": 5000,
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	scenarioID, _ := data["id"].(string)
	if scenarioID == "" {
		t.Fatal("expected a scenario id")
	}
	if data["currency"] != "USD" {
		t.Fatalf("expected default currency USD, got %v", data["currency"])
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/scenarios", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	list, _ := body["data"].([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(list))
	}

	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/scenarios/"+scenarioID, map[string]any{
		"name":       "Stay put, renegotiated",
		"baseSalary": 92000,
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body = decodeJSONMap(t, resp)
	data, _ = body["data"].(map[string]any)
	if data["name"] != "Stay put, renegotiated" || data["baseSalary"] != float64(92000) {
		t.Fatalf("scenario update not applied: %v", data)
	}

	resp = performRequest(t, env.app, http.MethodDelete, "/api/scenarios/"+scenarioID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = performRequest(t, env.app, http.MethodDelete, "/api/scenarios/"+scenarioID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestScenarioValidation(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "plans@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/scenarios", map[string]any{
		"baseSalary": 85000,
	}, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertErrorResponse(t, resp.StatusCode, body, http.StatusBadRequest, "name is required")

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/scenarios", map[string]any{
		"name":       "Broke",
		"baseSalary": -10,
	}, authHeaders(token))
	body = decodeJSONMap(t, resp)
	assertErrorResponse(t, resp.StatusCode, body, http.StatusBadRequest, "baseSalary cannot be negative")
}

func TestScenarioCompareRequiresStepUp(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "plans@example.com", "password123", models.UserRoleUser)

	resp := performRequest(t, env.app, http.MethodGet, "/api/scenarios/compare", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusForbidden)
	body := decodeJSONMap(t, resp)
	if body["code"] != "STEP_UP_REQUIRED" {
		t.Fatalf("expected STEP_UP_REQUIRED, got %v", body["code"])
	}

	// Plain list and create stay open without verification.
	resp = performRequest(t, env.app, http.MethodGet, "/api/scenarios", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestScenarioCompareProjections(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "plans@example.com", "password123", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPut, "/api/finance-settings", map[string]any{
		"taxRate":          0.40,
		"savingsRate":      0.50,
		"annualGrowthRate": 0.10,
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/scenarios", map[string]any{
		"name":       "Current job",
		"baseSalary": 100000,
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/scenarios", map[string]any{
		"name":           "Startup offer",
		"baseSalary":     80000,
		"annualEquity":   40000,
		"growthOverride": 0.0,
	}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	verifyStepUp(t, env, token)

	resp = performRequest(t, env.app, http.MethodGet, "/api/scenarios/compare?years=2", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	data, _ := body["data"].(map[string]any)
	if data["years"] != float64(2) {
		t.Fatalf("expected 2 projection years, got %v", data["years"])
	}

	projections, _ := data["projections"].([]any)
	if len(projections) != 2 {
		t.Fatalf("expected 2 projections, got %d", len(projections))
	}

	first, _ := projections[0].(map[string]any)
	years, _ := first["years"].([]any)
	if len(years) != 2 {
		t.Fatalf("expected 2 year rows, got %d", len(years))
	}

	// Year 1: 100000 gross, 60000 net at 40% tax, 30000 saved at 50%.
	year1, _ := years[0].(map[string]any)
	if year1["gross"] != float64(100000) {
		t.Fatalf("expected year-1 gross 100000, got %v", year1["gross"])
	}
	if year1["net"] != float64(60000) {
		t.Fatalf("expected year-1 net 60000, got %v", year1["net"])
	}
	if year1["savings"] != float64(30000) {
		t.Fatalf("expected year-1 savings 30000, got %v", year1["savings"])
	}

	// Year 2 grows by the settings rate.
	year2, _ := years[1].(map[string]any)
	if gross, _ := year2["gross"].(float64); math.Abs(gross-110000) > 0.01 {
		t.Fatalf("expected year-2 gross 110000, got %v", year2["gross"])
	}

	// The second scenario overrides growth to zero, so both years are flat.
	second, _ := projections[1].(map[string]any)
	secondYears, _ := second["years"].([]any)
	flatYear2, _ := secondYears[1].(map[string]any)
	if flatYear2["gross"] != float64(120000) {
		t.Fatalf("expected flat year-2 gross 120000, got %v", flatYear2["gross"])
	}
}
