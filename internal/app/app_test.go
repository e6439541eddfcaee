package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xwerkax/BloomlyApp/internal/config"
	"github.com/xwerkax/BloomlyApp/internal/data/repos/testutil"
	"github.com/xwerkax/BloomlyApp/internal/platform/apierr"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("METRICS_ENABLED", "true")
	cfg := Config{
		ArtifactStore:     ArtifactStoreMemory,
		Thresholds:        config.DefaultThresholds(),
		Location:          time.UTC,
		TrainConcurrency:  2,
		WorkerConcurrency: 1,
	}
	a, err := Build(context.Background(), testutil.Logger(t), cfg, testutil.DB(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return a
}

func call(t *testing.T, a *App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func field(t *testing.T, body map[string]any, obj, key string) any {
	t.Helper()
	m, ok := body[obj].(map[string]any)
	if !ok {
		t.Fatalf("missing %q in %v", obj, body)
	}
	return m[key]
}

func createPlant(t *testing.T, a *App, name string) string {
	t.Helper()
	code, body := call(t, a, http.MethodPost, "/api/plants", map[string]any{
		"name":                  name,
		"default_interval_days": 7,
	})
	if code != http.StatusCreated {
		t.Fatalf("create plant: %d %v", code, body)
	}
	return field(t, body, "plant", "id").(string)
}

func TestHealthcheck(t *testing.T) {
	a := newTestApp(t)
	// The health route answers in plain text, not JSON.
	w := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", w.Code, w.Body.String())
	}
}

func TestPlantErrorsMapToStatus(t *testing.T) {
	a := newTestApp(t)

	code, body := call(t, a, http.MethodPost, "/api/plants", map[string]any{"name": "  ", "default_interval_days": 7})
	if code != http.StatusBadRequest {
		t.Fatalf("blank name: %d %v", code, body)
	}
	if got := field(t, body, "error", "code"); got != "invalid_argument" {
		t.Fatalf("code=%v", got)
	}
	if code, _ := call(t, a, http.MethodGet, "/api/plants/not-a-uuid", nil); code != http.StatusBadRequest {
		t.Fatalf("bad uuid: %d", code)
	}
	if code, _ := call(t, a, http.MethodGet, "/api/plants/6a1f3c2e-7d1b-4c55-9a3e-2b8f7e0c1d44", nil); code != http.StatusNotFound {
		t.Fatalf("missing plant: %d", code)
	}
}

func TestWateringFlowThroughRouter(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	id := createPlant(t, a, "Fern")
	sparse := createPlant(t, a, "Cactus")

	base := time.Now().UTC().AddDate(0, 0, -43)
	for i := 0; i < 6; i++ {
		code, body := call(t, a, http.MethodPost, "/api/plants/"+id+"/waterings", map[string]any{
			"occurred_at":  base.AddDate(0, 0, 7*i),
			"soil_state":   "dry",
			"water_amount": "150ml",
		})
		if code != http.StatusCreated {
			t.Fatalf("record %d: %d %v", i, code, body)
		}
	}
	if code, body := call(t, a, http.MethodPost, "/api/plants/"+sparse+"/waterings", map[string]any{
		"occurred_at": base,
	}); code != http.StatusCreated {
		t.Fatalf("record sparse: %d %v", code, body)
	}

	code, body := call(t, a, http.MethodGet, "/api/plants/"+id+"/analysis", nil)
	if code != http.StatusOK {
		t.Fatalf("analysis: %d %v", code, body)
	}
	if got := field(t, body, "analysis", "watering_count"); got != float64(6) {
		t.Fatalf("watering_count=%v", got)
	}

	code, body = call(t, a, http.MethodPost, "/api/plants/"+sparse+"/model/train", nil)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("train sparse: %d %v", code, body)
	}
	if got := field(t, body, "error", "message"); got != apierr.NoRecommendationMessage {
		t.Fatalf("message=%v", got)
	}

	// The sixth watering trained a model lazily during analysis.
	code, body = call(t, a, http.MethodGet, "/api/models", nil)
	if code != http.StatusOK || body["count"] != float64(1) {
		t.Fatalf("models: %d %v", code, body)
	}

	code, body = call(t, a, http.MethodGet, "/api/plants/"+id+"/reminders", nil)
	if code != http.StatusOK {
		t.Fatalf("reminders: %d %v", code, body)
	}
	if rows, _ := body["reminders"].([]any); len(rows) != 1 {
		t.Fatalf("reminders=%v", body["reminders"])
	}

	code, body = call(t, a, http.MethodPost, "/api/jobs", map[string]any{"job_type": "retrain_all"})
	if code != http.StatusCreated {
		t.Fatalf("enqueue: %d %v", code, body)
	}
	jobID := field(t, body, "job", "id").(string)
	if code, _ := call(t, a, http.MethodPost, "/api/jobs", map[string]any{"job_type": "retrain_all"}); code != http.StatusConflict {
		t.Fatalf("duplicate enqueue: %d", code)
	}
	if code, _ := call(t, a, http.MethodPost, "/api/jobs", map[string]any{"job_type": "compost"}); code != http.StatusBadRequest {
		t.Fatalf("unknown job type: %d", code)
	}

	if !a.Services.JobWorker.RunOnce(ctx, 1) {
		t.Fatalf("expected a job to be claimed")
	}
	code, body = call(t, a, http.MethodGet, "/api/jobs/"+jobID, nil)
	if code != http.StatusOK {
		t.Fatalf("get job: %d %v", code, body)
	}
	if got := field(t, body, "job", "status"); got != "succeeded" {
		t.Fatalf("job status=%v", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.Server.Engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "bloomly_api_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}
}
