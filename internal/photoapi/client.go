package photoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/photure/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Photure/1.0"
	tracerName     = "github.com/mmcdole/photure/internal/photoapi"
)

// Client implements domain.PhotoRepository over the photo service REST API.
// It holds no credentials: every call receives the token to use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a new photo service client
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds an authenticated request. An empty token sends the
// request without credentials and lets the service answer 401.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, token string) (*http.Request, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do performs a request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "photoapi."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	requestID := req.Header.Get("X-Request-ID")
	c.logger.Debug("photo api request", "op", op, "method", req.Method, "url", req.URL.String(), "requestID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("photo api request failed", "op", op, "error", err, "requestID", requestID)
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Status: resp.StatusCode,
			Detail: parseErrorDetail(body),
			Kind:   kindForStatus(resp.StatusCode),
		}
		span.SetStatus(codes.Error, apiErr.Error())
		c.logger.Error("photo api error", "op", op, "status", resp.StatusCode, "detail", apiErr.Detail, "requestID", requestID)
		return nil, apiErr
	}

	span.SetStatus(codes.Ok, "")
	return body, nil
}

func (c *Client) doJSON(ctx context.Context, op string, req *http.Request, dest any) error {
	body, err := c.do(ctx, op, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "op", op, "error", err, "bodyLen", len(body))
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Ping checks that the service is reachable
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/", nil, nil, "")
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "Ping", req)
	return err
}

// ListPhotos returns one page of the user's photos, newest first
func (c *Client) ListPhotos(ctx context.Context, token string, offset, limit int) (domain.PhotoPage, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	req, err := c.newRequest(ctx, http.MethodGet, "/api/photos", query, nil, token)
	if err != nil {
		return domain.PhotoPage{}, err
	}

	var resp PhotoListResponse
	if err := c.doJSON(ctx, "ListPhotos", req, &resp); err != nil {
		return domain.PhotoPage{}, err
	}

	return domain.PhotoPage{Photos: MapPhotos(resp.Photos), Total: resp.Total}, nil
}

// DeletePhoto deletes a photo and returns the service's message
func (c *Client) DeletePhoto(ctx context.Context, token, id string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/photos/"+url.PathEscape(id), nil, nil, token)
	if err != nil {
		return "", err
	}

	var resp MessageResponse
	if err := c.doJSON(ctx, "DeletePhoto", req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// FetchPhotoBytes downloads the original photo bytes
func (c *Client) FetchPhotoBytes(ctx context.Context, token, id string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/serve/"+url.PathEscape(id), nil, nil, token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	return c.do(ctx, "FetchPhotoBytes", req)
}
