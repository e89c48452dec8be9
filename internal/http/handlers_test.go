package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finawise/internal/core"
	"finawise/internal/services"
	"finawise/internal/store/memory"
)

func newTestServer(txs, users []core.RawRecord) *Server {
	st := memory.New(txs, users)
	reports := services.NewReportService(st, st)
	ingest := services.NewIngestService(st, st, nil)
	return NewServer(":0", reports, ingest)
}

func TestParseCriteria(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet,
			"/api/reports/overview?region=Metropolitana&commune=Providencia&gender=F&healthTier=media&ageMin=20&ageMax=30&from=2024-01-01&to=2024-06-30", nil)
		crit := parseCriteria(r)

		if crit.Region != "Metropolitana" || crit.Commune != "Providencia" || crit.Gender != "F" {
			t.Errorf("string criteria = %+v", crit)
		}
		if crit.HealthTier != "media" {
			t.Errorf("HealthTier = %q, want media", crit.HealthTier)
		}
		if crit.AgeMin != 20 || crit.AgeMax != 30 {
			t.Errorf("age range = [%d,%d], want [20,30]", crit.AgeMin, crit.AgeMax)
		}
		if crit.DateFrom != time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) {
			t.Errorf("DateFrom = %v", crit.DateFrom)
		}
		if crit.DateTo != time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC) {
			t.Errorf("DateTo = %v", crit.DateTo)
		}
	})

	t.Run("absent fields mean no constraint", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/reports/overview", nil)
		crit := parseCriteria(r)

		if crit.Region != "" || crit.AgeMin != 0 || crit.AgeMax != 0 {
			t.Errorf("empty query produced constraints: %+v", crit)
		}
		if !crit.DateFrom.IsZero() || !crit.DateTo.IsZero() {
			t.Errorf("empty query produced date constraints: %+v", crit)
		}
	})

	t.Run("malformed values degrade silently", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet,
			"/api/reports/overview?ageMin=abc&ageMax=-5&from=13/01/2024", nil)
		crit := parseCriteria(r)

		if crit.AgeMin != 0 || crit.AgeMax != 0 {
			t.Errorf("malformed ages produced constraints: %+v", crit)
		}
		if !crit.DateFrom.IsZero() {
			t.Errorf("malformed date produced constraint: %v", crit.DateFrom)
		}
	})
}

func TestHandleOverview(t *testing.T) {
	s := newTestServer([]core.RawRecord{
		{"id": "t1", "userId": "u1", "type": "ingreso", "amount": 100000, "date": "2024-01-05"},
		{"id": "t2", "userId": "u1", "type": "gasto", "category": "Ahorro", "amount": 20000, "date": "2024-01-10"},
		{"id": "t3", "userId": "u1", "type": "gasto", "amount": 999, "date": "garbage"},
	}, []core.RawRecord{
		{"id": "u1", "commune": "Providencia", "region": "Metropolitana"},
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/reports/overview", nil)
	s.Server.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got services.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.TotalIncome != 100000 || got.TotalExpense != 20000 || got.TotalSavings != 20000 {
		t.Errorf("totals = %+v", got)
	}
	if got.Count != 2 {
		t.Errorf("Count = %d, want 2", got.Count)
	}
	if got.RejectedCount != 1 {
		t.Errorf("RejectedCount = %d, want 1", got.RejectedCount)
	}
	if got.BestMonth != "2024-01" {
		t.Errorf("BestMonth = %q, want 2024-01", got.BestMonth)
	}
}

func TestHandleOverview_MethodNotAllowed(t *testing.T) {
	s := newTestServer(nil, nil)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/reports/overview", nil)
	s.Server.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleCreateTransaction(t *testing.T) {
	s := newTestServer(nil, nil)

	t.Run("valid record stored and visible in reports", func(t *testing.T) {
		body := `{"type":"ingreso","amount":50000,"date":"2024-02-01"}`
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
		s.Server.Handler.ServeHTTP(rec, r)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
		}
		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if resp["id"] == "" {
			t.Error("response has no generated id")
		}

		// The write must be visible through the report path (cache purged).
		rec2 := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/reports/overview", nil))
		var got services.Summary
		if err := json.Unmarshal(rec2.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode overview: %v", err)
		}
		if got.TotalIncome != 50000 {
			t.Errorf("TotalIncome after ingest = %d, want 50000", got.TotalIncome)
		}
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{not json"))
		s.Server.Handler.ServeHTTP(rec, r)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("record failing canonicalization", func(t *testing.T) {
		body := `{"type":"transferencia","amount":100,"date":"2024-02-01"}`
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
		s.Server.Handler.ServeHTTP(rec, r)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
		}
	})
}

func TestHandleUpsertUser(t *testing.T) {
	s := newTestServer(nil, nil)

	body := `{"id":"u9","commune":"Macul","region":"Metropolitana"}`
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	s.Server.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["id"] != "u9" {
		t.Errorf("id = %q, want u9", resp["id"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(nil, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestReportCaching(t *testing.T) {
	raw := []core.RawRecord{
		{"id": "t1", "userId": "u1", "type": "ingreso", "amount": 1000, "date": "2024-01-05"},
	}
	s := newTestServer(raw, nil)

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/monthly", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first GET status = %d", rec.Code)
	}

	if _, found := s.reportCache.Get("/api/reports/monthly?"); !found {
		t.Error("report response was not cached")
	}

	rec2 := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/api/reports/monthly", nil))
	if rec2.Body.String() != rec.Body.String() {
		t.Error("cached response differs from computed response")
	}
}
