package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hitoshi/nytreact/internal/model"
)

// stubChecker は固定値または切替可能な可用性を返すAvailabilityCheckerモック。
type stubChecker struct {
	available atomic.Bool
	calls     atomic.Int32
}

func (s *stubChecker) IsAvailable() bool {
	s.calls.Add(1)
	return s.available.Load()
}

type mockGateRecorder struct {
	rejections int
}

func (m *mockGateRecorder) RecordGateRejection() {
	m.rejections++
}

// TestAvailabilityGate_Unavailable_Returns503WithoutCallingNext は未接続時に後続を呼ばず503を返すことを検証する。
func TestAvailabilityGate_Unavailable_Returns503WithoutCallingNext(t *testing.T) {
	checker := &stubChecker{}
	rec := &mockGateRecorder{}

	handlerCalled := false
	handler := NewAvailabilityGate(checker, rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(method, "/api/saved", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want %d", method, w.Code, http.StatusServiceUnavailable)
		}
		if got := w.Header().Get("Retry-After"); got != "5" {
			t.Errorf("%s: Retry-After = %q, want 5", method, got)
		}

		var body ErrorResponseBody
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Code != model.ErrCodeDatabaseUnavailable {
			t.Errorf("code = %q, want %q", body.Code, model.ErrCodeDatabaseUnavailable)
		}
		if body.Message != "Database unavailable." {
			t.Errorf("message = %q", body.Message)
		}
	}

	if handlerCalled {
		t.Error("next handler must not be called while the database is unavailable")
	}
	if rec.rejections != 3 {
		t.Errorf("rejections = %d, want 3", rec.rejections)
	}
}

// TestAvailabilityGate_Available_PassesThrough は接続中は後続ハンドラーに委譲することを検証する。
func TestAvailabilityGate_Available_PassesThrough(t *testing.T) {
	checker := &stubChecker{}
	checker.available.Store(true)
	rec := &mockGateRecorder{}

	handler := NewAvailabilityGate(checker, rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/saved", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if rec.rejections != 0 {
		t.Errorf("rejections = %d, want 0", rec.rejections)
	}
}

// TestAvailabilityGate_ChecksOncePerRequest は判定がリクエストごとに1回だけ行われることを検証する。
func TestAvailabilityGate_ChecksOncePerRequest(t *testing.T) {
	checker := &stubChecker{}
	checker.available.Store(true)

	handler := NewAvailabilityGate(checker, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 処理中に切断されても、このリクエストの判定は変わらない
		checker.available.Store(false)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/saved", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if calls := checker.calls.Load(); calls != 1 {
		t.Errorf("IsAvailable calls = %d, want 1", calls)
	}

	// 次のリクエストは新しい状態で判定される
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/saved", nil))
	if w2.Code != http.StatusServiceUnavailable {
		t.Errorf("second request status = %d, want %d", w2.Code, http.StatusServiceUnavailable)
	}
}
