package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/audit_backend/config"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, err := newApp(config.Settings{
		Port:            "8080",
		DefaultStandard: "syscohada",
		CorsOrigins:     []string{"*"},
		MaxUploadBytes:  1 << 20,
		CacheTTL:        time.Minute,
		CacheSize:       16,
		LockTTL:         time.Second,
	})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a.router()
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_Basics(t *testing.T) {
	r := newTestRouter(t)
	if w := do(r, http.MethodGet, "/healthz", nil); w.Code != http.StatusNoContent {
		t.Fatalf("healthz = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", w.Code)
	}
	w := do(r, http.MethodGet, "/api/compliance/standards", nil)
	var body struct {
		Standards []map[string]any `json:"standards"`
	}
	if w.Code != http.StatusOK || json.Unmarshal(w.Body.Bytes(), &body) != nil || len(body.Standards) == 0 {
		t.Fatalf("standards = %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/api/compliance/checklist/martian", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("checklist with bad standard = %d", w.Code)
	}
}

func TestDetectorThresholds_RejectsInvalid(t *testing.T) {
	r := newTestRouter(t)
	if w := do(r, http.MethodPut, "/api/detector/thresholds", map[string]any{"round_amount_percentage": 2}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", w.Code, w.Body.String())
	}
	w := do(r, http.MethodPut, "/api/detector/thresholds", map[string]any{"journal_zscore": 3})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var th map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &th)
	if th["journal_zscore"] != 3.0 || th["round_amount_percentage"] != 0.15 {
		t.Fatalf("unexpected thresholds %v", th)
	}
}

func TestDetectorRun_IsCached(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{"records": []map[string]any{
		{"entry_id": "1", "montant": 1000, "account": "601000"},
		{"entry_id": "2", "montant": 250, "account": "401000"},
	}}
	first := do(r, http.MethodPost, "/api/detector/run", body)
	second := do(r, http.MethodPost, "/api/detector/run", body)
	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("codes %d %d", first.Code, second.Code)
	}
	if first.Header().Get("X-Cache-Hit") != "false" || second.Header().Get("X-Cache-Hit") != "true" {
		t.Fatalf("cache headers %q %q", first.Header().Get("X-Cache-Hit"), second.Header().Get("X-Cache-Hit"))
	}
}

func TestProjectAnalyze(t *testing.T) {
	r := newTestRouter(t)
	entries := []map[string]any{
		{"account_number": "601000", "piece_number": "P1", "entry_date": "2024-03-15T00:00:00Z", "debit_amount": "1000", "credit_amount": "0"},
		{"account_number": "401000", "piece_number": "P1", "entry_date": "2024-03-15T00:00:00Z", "debit_amount": "0", "credit_amount": "1000"},
	}
	w := do(r, http.MethodPost, "/api/projects/analyze", map[string]any{"project_id": "p-1", "standard": "ifrs", "entries": entries})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var res struct {
		Standard string `json:"standard"`
		Entries  int    `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.Standard != "ifrs" || res.Entries != 2 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if w := do(r, http.MethodPost, "/api/projects/analyze", map[string]any{"standard": "martian", "entries": entries}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown standard, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/projects/analyze", map[string]any{"standard": "ifrs", "entries": []any{}}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for no entries, got %d", w.Code)
	}
}

func TestImportUpload(t *testing.T) {
	r := newTestRouter(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "balance.csv")
	_, _ = fw.Write([]byte("Compte;Intitulé;Débit;Crédit\n601000;Achats;1000;0\n401000;Fournisseurs;0;1000\n"))
	_ = mw.WriteField("import_type", "balance")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	var res struct {
		Success       bool   `json:"success"`
		ImportType    string `json:"import_type"`
		RowsProcessed int    `json:"rows_processed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || !res.Success || res.ImportType != "balance" || res.RowsProcessed != 2 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
