package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// instrument installs a recording tracer provider for the duration of the
// test and returns fresh metrics with their reader. Tests using it must not
// run in parallel.
func instrument(t *testing.T) (*Metrics, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return m, reader, exp
}

func spanAttr(s tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, a := range s.Attributes {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddleware_CorrelationID(t *testing.T) {
	const incoming = "4bf92f3577b34da6a3ce929d0e0e4736"

	tests := []struct {
		name        string
		traceparent string
		want        string // empty: any fresh 32-char trace ID
	}{
		{name: "fresh trace"},
		{name: "continues caller trace", traceparent: "00-" + incoming + "-00f067aa0ba902b7-01", want: incoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := instrument(t)

			var seen string
			h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = CorrelationID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if len(seen) != 32 {
				t.Fatalf("correlation ID %q is not a trace ID", seen)
			}
			if tt.want != "" && seen != tt.want {
				t.Errorf("correlation ID = %q, want %q", seen, tt.want)
			}
			if got := rec.Header().Get("X-Correlation-ID"); got != seen {
				t.Errorf("X-Correlation-ID = %q, want %q", got, seen)
			}
			if rec.Header().Get("traceparent") == "" {
				t.Error("response carries no traceparent")
			}
		})
	}
}

func TestMiddleware_RecordsPerRoute(t *testing.T) {
	m, reader, exp := instrument(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/documents/{id}/commands", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "gone" {
			w.WriteHeader(http.StatusGone)
		}
	})
	h := Middleware(m)(mux)

	for _, id := range []string{"talk-1", "talk-2", "gone"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/commands", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "scribe.http.request.duration")
	if met == nil {
		t.Fatal("scribe.http.request.duration not recorded")
	}
	counts := map[string]uint64{}
	for _, dp := range met.Data.(metricdata.Histogram[float64]).DataPoints {
		route, _ := dp.Attributes.Value("route")
		counts[route.AsString()] += dp.Count
	}
	if counts["POST /v1/documents/{id}/commands"] != 3 {
		t.Errorf("command route samples = %d, want 3 (got %v)", counts["POST /v1/documents/{id}/commands"], counts)
	}
	if counts["/nowhere"] != 1 {
		t.Errorf("unmatched path samples = %d, want 1", counts["/nowhere"])
	}

	spans := exp.GetSpans()
	if len(spans) != 4 {
		t.Fatalf("spans = %d, want 4", len(spans))
	}
	if spans[2].Name != "HTTP POST /v1/documents/gone/commands" {
		t.Errorf("span name = %q", spans[2].Name)
	}
	if v, ok := spanAttr(spans[2], "http.route"); !ok || v.AsString() != "POST /v1/documents/{id}/commands" {
		t.Errorf("http.route = %v, %v", v.Emit(), ok)
	}
	if v, ok := spanAttr(spans[2], "http.response.status_code"); !ok || v.AsInt64() != http.StatusGone {
		t.Errorf("status code attribute = %v, %v", v.Emit(), ok)
	}
	if _, ok := spanAttr(spans[3], "http.route"); ok {
		t.Error("unmatched request got an http.route attribute")
	}
}

func TestMiddleware_Hijack(t *testing.T) {
	m, _, exp := instrument(t)

	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("wrapped writer does not expose Hijack")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Errorf("Hijack: %v", err)
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n")
		_ = buf.Flush()
	}))
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		h.ServeHTTP(w, r)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/documents/talk/live")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	<-done

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if v, _ := spanAttr(spans[0], "http.response.status_code"); v.AsInt64() != http.StatusSwitchingProtocols {
		t.Errorf("status code attribute = %d, want 101", v.AsInt64())
	}
}

func TestMiddleware_HijackUnsupported(t *testing.T) {
	m, _, _ := instrument(t)

	var err error
	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _, err = w.(http.Hijacker).Hijack()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/documents/talk/live", nil))
	if err == nil {
		t.Error("Hijack over a recorder succeeded")
	}
}
