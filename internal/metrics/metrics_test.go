package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスから指定ラベルの値を取得する。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSave_CountsByResult は保存結果別にカウンタが増加することを検証する。
func TestRecordSave_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSave("created")
	c.RecordSave("exists")
	c.RecordSave("exists")

	mf := findMetricFamily(t, reg, "nytreact_saves_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label series, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		val := m.GetCounter().GetValue()
		switch result := labelValue(m, "result"); result {
		case "created":
			if val != 1 {
				t.Errorf("saves_total{result=created} = %v, want 1", val)
			}
		case "exists":
			if val != 2 {
				t.Errorf("saves_total{result=exists} = %v, want 2", val)
			}
		default:
			t.Errorf("unexpected label value: %s", result)
		}
	}
}

// TestRecordDelete_CountsByResult は削除結果別にカウンタが増加することを検証する。
func TestRecordDelete_CountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDelete("not_found")

	mf := findMetricFamily(t, reg, "nytreact_deletes_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "result") != "not_found" {
		t.Errorf("result label = %s, want not_found", labelValue(m, "result"))
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("deletes_total = %v, want 1", m.GetCounter().GetValue())
	}
}

// TestRecordGateRejection_IncrementsCounter はゲート拒否カウンタが増加することを検証する。
func TestRecordGateRejection_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGateRejection()
	c.RecordGateRejection()

	mf := findMetricFamily(t, reg, "nytreact_gate_rejections_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("gate_rejections_total = %v, want 2", val)
	}
}

// TestSetDBConnected_TracksLatestState はゲージが最新の接続状態を示すことを検証する。
func TestSetDBConnected_TracksLatestState(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetDBConnected(true)
	mf := findMetricFamily(t, reg, "nytreact_db_connected")
	if val := mf.GetMetric()[0].GetGauge().GetValue(); val != 1 {
		t.Errorf("db_connected = %v, want 1", val)
	}

	c.SetDBConnected(false)
	mf = findMetricFamily(t, reg, "nytreact_db_connected")
	if val := mf.GetMetric()[0].GetGauge().GetValue(); val != 0 {
		t.Errorf("db_connected = %v, want 0", val)
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスコード別カウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(503)

	mf := findMetricFamily(t, reg, "nytreact_http_status_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label series, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		val := m.GetCounter().GetValue()
		switch label := labelValue(m, "status_code"); label {
		case "200":
			if val != 2 {
				t.Errorf("http_status_total{status_code=200} = %v, want 2", val)
			}
		case "503":
			if val != 1 {
				t.Errorf("http_status_total{status_code=503} = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected label value: %s", label)
		}
	}
}

// TestObserveSearch_ObservesHistogram は検索レイテンシのヒストグラムに値が記録されることを検証する。
func TestObserveSearch_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveSearch("ok", 100*time.Millisecond)
	c.ObserveSearch("ok", 2*time.Second)

	mf := findMetricFamily(t, reg, "nytreact_search_latency_seconds")
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat はHandlerがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSave("created")
	c.RecordGateRejection()
	c.SetDBConnected(true)
	c.RecordHTTPStatus(201)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"nytreact_saves_total",
		"nytreact_gate_rejections_total",
		"nytreact_db_connected",
		"nytreact_http_status_total",
	}
	for _, name := range expectedMetrics {
		if !strings.Contains(bodyStr, name) {
			t.Errorf("response should contain %s", name)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを満たすことを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
}

// TestMultipleCollectors_IndependentRegistries は独立したレジストリで複数のCollectorが作成できることを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordGateRejection()
	c2.RecordGateRejection()
	c2.RecordGateRejection()

	if val := findMetricFamily(t, reg1, "nytreact_gate_rejections_total").GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("reg1 gate_rejections_total = %v, want 1", val)
	}
	if val := findMetricFamily(t, reg2, "nytreact_gate_rejections_total").GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("reg2 gate_rejections_total = %v, want 2", val)
	}
}
