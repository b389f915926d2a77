package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/khuttun/labyrinth/internal/config"
	"github.com/khuttun/labyrinth/internal/game"
	"github.com/khuttun/labyrinth/internal/level"
)

func testRouter(t *testing.T) (*gin.Engine, *level.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Gravity:             50,
		Damping:             0.4,
		Restitution:         0.45,
		MaxTilt:             0.5,
		SimulationHz:        120,
		CollisionIterations: 4,
		BallRadius:          2.0,
		HoleRadius:          2.5,
		RunExpiryMinutes:    10,
		SnapshotTTLSeconds:  3600,
		AdminToken:          "test-admin-token",
		JWTSecret:           "test-secret",
	}

	store, err := level.NewStore(nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	game.Manager = game.NewRunManager(nil, nil, cfg)
	t.Cleanup(game.Manager.Stop)

	router := gin.New()
	router.GET("/health", HealthCheck)
	router.GET("/levels", ListLevels(store))
	router.GET("/levels/:id", GetLevel(store))
	router.GET("/levels/:id/leaderboard", GetLeaderboard())
	router.POST("/runs", CreateRun(store, cfg))
	router.GET("/runs/:token", GetRun())
	adminGroup := router.Group("/admin", RequireAdmin(nil, cfg))
	adminGroup.POST("/levels", UploadLevel(store, cfg))
	adminGroup.DELETE("/levels/:id", DeleteLevel(store))
	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s %s: bad response json: %v", method, path, err)
		}
	}
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	router, _ := testRouter(t)
	w, resp := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Errorf("health: %d %v", w.Code, resp)
	}
}

func TestListAndGetLevels(t *testing.T) {
	router, _ := testRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/levels", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	levels, ok := resp["levels"].([]interface{})
	if !ok || len(levels) < 2 {
		t.Fatalf("expected built-in levels, got %v", resp)
	}

	w, resp = doJSON(t, router, http.MethodGet, "/levels/1", "", nil)
	if w.Code != http.StatusOK || resp["name"] == "" {
		t.Errorf("get level 1: %d %v", w.Code, resp)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/levels/9999", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing level: %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/levels/abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id: %d", w.Code)
	}
}

func TestCreateAndGetRun(t *testing.T) {
	router, _ := testRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/runs", `{"level_id": 1}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create run: %d %v", w.Code, resp)
	}
	token, _ := resp["run_token"].(string)
	if token == "" {
		t.Fatalf("no run token in %v", resp)
	}

	w, resp = doJSON(t, router, http.MethodGet, "/runs/"+token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get run: %d %v", w.Code, resp)
	}
	state, ok := resp["state"].(map[string]interface{})
	if !ok || state["status"] != string(game.RunInProgress) {
		t.Errorf("run state: %v", resp)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/runs/bogus", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown run: %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/runs", `{"level_id": 9999}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("run on missing level: %d", w.Code)
	}
}

func TestCreateDemoRun(t *testing.T) {
	router, _ := testRouter(t)
	w, resp := doJSON(t, router, http.MethodPost, "/runs", `{"level_id": 1, "demo": true}`, nil)
	if w.Code != http.StatusCreated || resp["demo"] != true {
		t.Errorf("demo run: %d %v", w.Code, resp)
	}
}

func TestAdminLevelUpload(t *testing.T) {
	router, _ := testRouter(t)
	levelJSON := `{
		"name": "Uploaded",
		"size": {"w": 50, "h": 50},
		"start": {"x": 5, "y": 5},
		"end": {"pos": {"x": 40, "y": 40}, "size": {"w": 6, "h": 6}},
		"walls": [{"pos": {"x": 10, "y": 10}, "size": {"w": 20, "h": 2}}],
		"holes": [{"x": 25, "y": 25}]
	}`

	// No token.
	w, _ := doJSON(t, router, http.MethodPost, "/admin/levels", levelJSON, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload without token: %d", w.Code)
	}

	// Wrong token.
	w, _ = doJSON(t, router, http.MethodPost, "/admin/levels", levelJSON, map[string]string{"X-Admin-Token": "nope"})
	if w.Code != http.StatusForbidden {
		t.Errorf("upload with bad token: %d", w.Code)
	}

	// Valid token, valid level.
	auth := map[string]string{"X-Admin-Token": "test-admin-token"}
	w, resp := doJSON(t, router, http.MethodPost, "/admin/levels", levelJSON, auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %v", w.Code, resp)
	}
	id := int(resp["id"].(float64))

	// Malformed level is rejected with a reason.
	w, _ = doJSON(t, router, http.MethodPost, "/admin/levels", `{"name": "x"}`, auth)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed upload: %d", w.Code)
	}

	// Delete it again.
	req := httptest.NewRequest(http.MethodDelete, "/admin/levels/"+strconv.Itoa(id), nil)
	req.Header.Set("X-Admin-Token", "test-admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: %d", rec.Code)
	}
}
