package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/open-procurement/ecatalog/internal/auth"
	"github.com/open-procurement/ecatalog/internal/catalog"
	"github.com/open-procurement/ecatalog/internal/config"
	"github.com/open-procurement/ecatalog/internal/models"
	"github.com/open-procurement/ecatalog/internal/profile"
	"github.com/open-procurement/ecatalog/internal/standards"
	"github.com/open-procurement/ecatalog/internal/storage"
)

const (
	adminToken  = "admin-test-token"
	brokerToken = "broker-test-token"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry := standards.NewStaticRegistry(
		map[string]standards.UnitEntry{"KGM": {Name: "кілограми"}},
		map[string]map[string]string{
			"ДК021": {"03222111-4": "Банани"},
		},
	)

	adminHash, err := auth.HashToken(adminToken)
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	brokerHash, err := auth.HashToken(brokerToken)
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}
	authenticator := auth.NewAuthenticator([]auth.User{
		{Name: "admin", TokenHash: adminHash, Admin: true},
		{Name: "broker", TokenHash: brokerHash, Admin: false},
	})

	repo := storage.NewMemoryRepository()
	criteria := catalog.NewService(repo, registry, nil)
	profiles := profile.NewService(repo, registry, criteria)

	return NewServer(config.ServerConfig{}, criteria, profiles, repo, authenticator)
}

func doRequest(t *testing.T, server *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %s: %v", recorder.Body.String(), err)
	}
}

func criterionBody() map[string]any {
	return map[string]any{
		"name":           "Вміст цукру",
		"dataType":       "number",
		"classification": map[string]any{"id": "03222111-4"},
		"unit":           map[string]any{"code": "KGM"},
	}
}

func createTestCriterion(t *testing.T, server *Server) string {
	t.Helper()
	resp := doRequest(t, server, http.MethodPost, "/api/0/criteria/", adminToken, criterionBody())
	if resp.Code != http.StatusCreated {
		t.Fatalf("criterion create returned %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	return created.ID
}

func profileBody(criterionID string) map[string]any {
	return map[string]any{
		"title":          "Банани жовті",
		"classification": map[string]any{"id": "03222111-4"},
		"unit":           map[string]any{"code": "KGM"},
		"value":          map[string]any{"amount": "100"},
		"criteria": []map[string]any{{
			"title": "Основні характеристики",
			"requirementGroups": []map[string]any{{
				"requirements": []map[string]any{{
					"title":              "Вміст цукру",
					"relatedCriteria_id": criterionID,
					"expectedValue":      "11",
				}},
			}},
		}},
	}
}

func TestAuthenticationRequired(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/api/0/criteria/", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.Code)
	}

	resp = doRequest(t, server, http.MethodGet, "/api/0/criteria/", "bogus", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", resp.Code)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["detail"] != "Invalid token." {
		t.Errorf("unexpected detail: %q", body["detail"])
	}
}

func TestCriteriaWritesRequireAdmin(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodPost, "/api/0/criteria/", brokerToken, criterionBody())
	if resp.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin create, got %d", resp.Code)
	}

	// Reads are open to any identity
	resp = doRequest(t, server, http.MethodGet, "/api/0/criteria/", brokerToken, nil)
	if resp.Code != http.StatusOK {
		t.Errorf("expected 200 for list, got %d", resp.Code)
	}
}

func TestCriteriaListProjection(t *testing.T) {
	server := newTestServer(t)
	createTestCriterion(t, server)

	resp := doRequest(t, server, http.MethodGet, "/api/0/criteria/", brokerToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("list returned %d", resp.Code)
	}

	var views []map[string]any
	decodeBody(t, resp, &views)
	if len(views) != 1 {
		t.Fatalf("expected 1 criterion, got %d", len(views))
	}
	if _, ok := views[0]["name"]; !ok {
		t.Error("default projection should include name")
	}
	if _, ok := views[0]["dataType"]; ok {
		t.Error("default projection should not include dataType")
	}

	resp = doRequest(t, server, http.MethodGet, "/api/0/criteria/?opt_fields=dataType,minValue", brokerToken, nil)
	decodeBody(t, resp, &views)
	if views[0]["dataType"] != "number" {
		t.Errorf("opt_fields should add dataType, got %v", views[0]["dataType"])
	}
}

func TestCriterionNotFound(t *testing.T) {
	server := newTestServer(t)

	resp := doRequest(t, server, http.MethodGet, "/api/0/criteria/9a750cc1bbf94b3cafdfa3a64ed39ae5/", brokerToken, nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.Code)
	}
}

func TestCriterionValidationError(t *testing.T) {
	server := newTestServer(t)

	body := criterionBody()
	body["unit"] = map[string]any{"code": "NOPE"}
	resp := doRequest(t, server, http.MethodPost, "/api/0/criteria/", adminToken, body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}

	var fields map[string]any
	decodeBody(t, resp, &fields)
	unit, ok := fields["unit"].(map[string]any)
	if !ok || unit["code"] != "Wrong code" {
		t.Errorf("expected unit code error, got %v", fields)
	}

	// A non-numeric bound is a field error, not a body decode failure
	body = criterionBody()
	body["minValue"] = "багато"
	resp = doRequest(t, server, http.MethodPost, "/api/0/criteria/", adminToken, body)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	decodeBody(t, resp, &fields)
	if fields["minValue"] != "Must be a number" {
		t.Errorf("expected minValue error, got %v", fields)
	}
}

func TestProfileLifecycle(t *testing.T) {
	server := newTestServer(t)
	criterionID := createTestCriterion(t, server)

	// Create returns the one-time access envelope
	resp := doRequest(t, server, http.MethodPost, "/api/0/profiles/", brokerToken, profileBody(criterionID))
	if resp.Code != http.StatusCreated {
		t.Fatalf("profile create returned %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Access models.AccessData `json:"access"`
		Data   struct {
			ID     string `json:"id"`
			Author string `json:"author"`
			Status string `json:"status"`
		} `json:"data"`
	}
	decodeBody(t, resp, &envelope)

	if envelope.Access.Owner != "broker" {
		t.Errorf("expected owner broker, got %q", envelope.Access.Owner)
	}
	if len(envelope.Access.Token) != 32 {
		t.Errorf("expected 32-char hex token, got %q", envelope.Access.Token)
	}

	profileID := envelope.Data.ID

	// The token is never re-displayed on reads
	resp = doRequest(t, server, http.MethodGet, "/api/0/profiles/"+profileID+"/", brokerToken, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get returned %d", resp.Code)
	}
	var read map[string]any
	decodeBody(t, resp, &read)
	if _, ok := read["accessToken"]; ok {
		t.Error("access token must not appear in reads")
	}

	// Patch without access data
	resp = doRequest(t, server, http.MethodPatch, "/api/0/profiles/"+profileID+"/", brokerToken,
		map[string]any{"data": map[string]any{"title": "Нова назва"}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing access, got %d", resp.Code)
	}
	var detail map[string]string
	decodeBody(t, resp, &detail)
	if detail["detail"] != "Missing access data" {
		t.Errorf("unexpected detail: %q", detail["detail"])
	}

	// Patch with a wrong token
	resp = doRequest(t, server, http.MethodPatch, "/api/0/profiles/"+profileID+"/", brokerToken,
		map[string]any{
			"access": map[string]any{"owner": "broker", "token": "9a750cc1bbf94b3cafdfa3a64ed39ae5"},
			"data":   map[string]any{"title": "Нова назва"},
		})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong access, got %d", resp.Code)
	}
	decodeBody(t, resp, &detail)
	if detail["detail"] != "Wrong access data" {
		t.Errorf("unexpected detail: %q", detail["detail"])
	}

	// Patch with the real access data
	resp = doRequest(t, server, http.MethodPatch, "/api/0/profiles/"+profileID+"/", brokerToken,
		map[string]any{
			"access": envelope.Access,
			"data":   map[string]any{"title": "Нова назва"},
		})
	if resp.Code != http.StatusOK {
		t.Fatalf("patch returned %d: %s", resp.Code, resp.Body.String())
	}
	decodeBody(t, resp, &read)
	if read["title"] != "Нова назва" {
		t.Errorf("expected patched title, got %v", read["title"])
	}

	// List envelope
	resp = doRequest(t, server, http.MethodGet, "/api/0/profiles/", brokerToken, nil)
	var list struct {
		Results []map[string]any `json:"results"`
		Total   int              `json:"total"`
	}
	decodeBody(t, resp, &list)
	if list.Total != 1 || len(list.Results) != 1 {
		t.Errorf("expected one profile, got %d (total %d)", len(list.Results), list.Total)
	}

	// Destroy hides the profile and returns the representation
	resp = doRequest(t, server, http.MethodDelete, "/api/0/profiles/"+profileID+"/", brokerToken,
		map[string]any{"access": envelope.Access})
	if resp.Code != http.StatusOK {
		t.Fatalf("destroy returned %d: %s", resp.Code, resp.Body.String())
	}
	decodeBody(t, resp, &read)
	if read["status"] != "hidden" {
		t.Errorf("expected hidden status, got %v", read["status"])
	}
}
