package httpops

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/repo"
)

func init() { gin.SetMode(gin.TestMode) }

func TestHealthz(t *testing.T) {
	db := newOpsDB(t)
	r := NewRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestReadyz_OKWithLiveDB(t *testing.T) {
	db := newOpsDB(t)
	r := NewRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /readyz = %d; want 200, body %s", w.Code, w.Body.String())
	}
}

func TestReadyz_DegradedWithClosedDB(t *testing.T) {
	db := newOpsDB(t)
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	r := NewRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /readyz on closed DB = %d; want 503", w.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	db := newOpsDB(t)
	r := NewRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d; want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("expected default collectors in exposition")
	}
}

func newOpsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "ops.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
