package analysis

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"speechlens/encoder"
	"speechlens/log"
)

const tracerName = "speechlens/analysis"

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("analysis backend error %d: %s", e.Code, body)
}

type Client struct {
	endpoint string
	http     *TracedClient
	allowed  map[string]bool
	tracer   trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = NewTracedClient(hc) }
}

// WithExtraTypes lets payloads of these content types through validation,
// for backends that accept more than the stock set.
func WithExtraTypes(types ...string) Option {
	return func(c *Client) {
		for _, t := range types {
			c.allowed[t] = true
		}
	}
}

// NewClient targets <baseURL>/analyze.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend URL %q must be absolute http(s)", baseURL)
	}

	c := &Client{
		endpoint: strings.TrimRight(u.String(), "/") + "/analyze",
		http:     NewTracedClient(nil),
		allowed:  typeSet(BackendTypes),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Endpoint() string { return c.endpoint }

// Analyze uploads one recording and waits for the full analysis. There is no
// retry and no deadline beyond ctx.
func (c *Client) Analyze(ctx context.Context, p encoder.Payload) (*Result, error) {
	if err := c.Validate(p); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "analysis.submit", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("payload.format", p.Format),
		attribute.Int("payload.bytes", len(p.Data)),
	))
	defer span.End()

	res, status, err := c.submit(ctx, requestID, p)
	span.SetAttributes(attribute.Int("http.status_code", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return res, nil
}

func (c *Client) submit(ctx context.Context, requestID string, p encoder.Payload) (*Result, int, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, p.Filename))
	h.Set("Content-Type", p.ContentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, 0, err
	}
	if _, err := part.Write(p.Data); err != nil {
		return nil, 0, err
	}
	if err := writer.Close(); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("posting recording: %w", err)
	}

	m := resp.Metrics
	log.Submission(log.SubmissionMetrics{
		RequestID:   requestID,
		Format:      p.Format,
		Status:      resp.StatusCode,
		AudioS:      p.Duration().Seconds(),
		PayloadKB:   float64(len(p.Data)) / 1024,
		EncodeMs:    ms(p.EncodeTime),
		DNSMs:       ms(m.DNS),
		TCPMs:       ms(m.TCP),
		TLSMs:       ms(m.TLS),
		TTFBMs:      ms(m.TTFB),
		DownloadMs:  ms(m.Download),
		TotalMs:     ms(m.Total),
		ConnReused:  m.ConnReused,
		TLSProtocol: m.TLSProtocol,
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: string(resp.Body)}
	}

	res, err := Decode(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	res.RequestID = requestID
	res.Metrics = m
	return res, resp.StatusCode, nil
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return 0, err
	}
	d, err := c.http.Probe(req)
	if err != nil {
		return 0, fmt.Errorf("backend unreachable: %w", err)
	}
	return d, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
