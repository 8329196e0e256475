package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"speechlens/encoder"
)

func wavPayload(n int) encoder.Payload {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return encoder.Payload{
		Data:        data,
		Format:      encoder.FormatWAV,
		Filename:    "recording.wav",
		ContentType: "audio/wav",
	}
}

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	if got, want := m.Sum(), 195*time.Millisecond; got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host/", "http://"} {
		if _, err := NewClient(raw); err == nil {
			t.Errorf("NewClient(%q) should fail", raw)
		}
	}
}

func TestNewClientEndpoint(t *testing.T) {
	c, err := NewClient("http://localhost:8000/")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Endpoint(); got != "http://localhost:8000/analyze" {
		t.Errorf("Endpoint() = %q", got)
	}
}

func TestAnalyzePostsMultipart(t *testing.T) {
	payload := wavPayload(2048)
	ids := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		ids <- r.Header.Get("X-Request-ID")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "recording.wav" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("part content type = %q", ct)
		}
		body, _ := io.ReadAll(file)
		if string(body) != string(payload.Data) {
			t.Error("uploaded bytes differ from payload")
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"transcript": "hello there",
			"confidence_score": 0.82,
			"confidence_label": "High",
			"speech_metrics": {"speech_rate": 3.1, "pitch_mean": 180.5},
			"agent_results": {"personality": "Open"},
			"final_report": "Confident speaker."
		}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Analyze(context.Background(), payload)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	gotID := <-ids
	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", gotID, err)
	}
	if res.RequestID != gotID {
		t.Errorf("RequestID = %q, header was %q", res.RequestID, gotID)
	}
	if res.Transcript != "hello there" || res.ConfidenceScore != 0.82 || res.FinalReport != "Confident speaker." {
		t.Errorf("unexpected result: %+v", res)
	}
	keys := res.SpeechMetrics.Keys()
	if len(keys) != 2 || keys[0] != "speech_rate" || keys[1] != "pitch_mean" {
		t.Errorf("metric order = %v", keys)
	}
	if res.Metrics == nil {
		t.Error("expected network metrics")
	}
}

func TestAnalyzeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"pipeline crashed"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	_, err := c.Analyze(context.Background(), wavPayload(4096))

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d", se.Code)
	}
}

func TestAnalyzeUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>gateway</html>")
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if _, err := c.Analyze(context.Background(), wavPayload(4096)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAnalyzeValidatesBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	_, err := c.Analyze(context.Background(), wavPayload(0))
	if !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("backend hit %d times", hits.Load())
	}
}

func TestAnalyzeCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Analyze(ctx, wavPayload(4096)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	c, _ := NewClient("http://localhost:8000")
	flacClient, _ := NewClient("http://localhost:8000", WithExtraTypes("audio/flac"))

	flac := wavPayload(4096)
	flac.ContentType = "audio/flac"
	flac.Filename = "recording.flac"

	traversal := wavPayload(4096)
	traversal.Filename = "..%2Fetc%2Fpasswd"

	tests := []struct {
		name    string
		client  *Client
		payload encoder.Payload
		want    error
	}{
		{"empty", c, wavPayload(0), ErrEmptyPayload},
		{"too small", c, wavPayload(MinPayloadSize - 1), ErrPayloadTooSmall},
		{"minimum", c, wavPayload(MinPayloadSize), nil},
		{"maximum", c, wavPayload(MaxPayloadSize), nil},
		{"too large", c, wavPayload(MaxPayloadSize + 1), ErrPayloadTooLarge},
		{"flac rejected by default", c, flac, ErrUnsupportedType},
		{"flac allowed when opted in", flacClient, flac, nil},
		{"path traversal", c, traversal, ErrInvalidFilename},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.Validate(tt.payload)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	c, _ := NewClient(srv.URL, WithHTTPClient(srv.Client()))
	if _, err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping on live backend: %v", err)
	}

	srv.Close()
	if _, err := c.Ping(context.Background()); err == nil {
		t.Error("Ping on closed backend should fail")
	}
}
