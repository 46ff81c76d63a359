package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	v1 "image-compare/api/v1"
	"image-compare/internal/codec"
	diffimage "image-compare/internal/diff/image"
	"image-compare/internal/retry"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/xerrors"
)

// Client talks to a diff-server.
type Client struct {
	endpoint   string
	httpClient *http.Client
	backoff    retry.Backoff
	condition  *retry.Condition
	timeout    time.Duration
}

type Option func(*Client)

func WithBackoff(b retry.Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

func WithCondition(condition *retry.Condition) Option {
	return func(c *Client) {
		c.condition = condition
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the underlying client entirely; retries are then
// up to its transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse server URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, xerrors.Errorf("server URL %q must be absolute", baseURL)
	}

	c := &Client{
		endpoint:  u.JoinPath("diff").String(),
		backoff:   &retry.Exponential{Base: 100 * time.Millisecond, Max: 5 * time.Second, Attempts: 3},
		condition: retry.DefaultCondition(),
		timeout:   60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
			Transport: otelhttp.NewTransport(&retry.Transport{
				Base:      http.DefaultTransport,
				Backoff:   c.backoff,
				Condition: c.condition,
			}),
		}
	}
	return c, nil
}

type DiffRequest struct {
	Current       []byte
	CurrentName   string
	Reference     []byte
	ReferenceName string
	Parameters    diffimage.Parameters
	Format        codec.Format
}

type DiffResponse struct {
	Data       []byte
	DiffAmount float64
	Width      int
	Height     int
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("diff server returned %d: %s", e.StatusCode, e.Body)
}

func (c *Client) Diff(ctx context.Context, req DiffRequest) (*DiffResponse, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", contentType)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to call diff server: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return nil, &StatusError{StatusCode: response.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	var payload v1.DiffResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, xerrors.Errorf("failed to decode diff response: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(payload.DiffData)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode diff image: %w", err)
	}

	return &DiffResponse{
		Data:       data,
		DiffAmount: payload.DiffAmount,
		Width:      payload.Width,
		Height:     payload.Height,
	}, nil
}

func encodeForm(req DiffRequest) ([]byte, string, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	files := []struct {
		field string
		name  string
		data  []byte
	}{
		{v1.FieldCurrent, req.CurrentName, req.Current},
		{v1.FieldReference, req.ReferenceName, req.Reference},
	}
	for _, f := range files {
		name := filepath.Base(f.name)
		if f.name == "" {
			name = f.field
		}
		part, err := writer.CreateFormFile(f.field, name)
		if err != nil {
			return nil, "", xerrors.Errorf("failed to create %s part: %w", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, "", xerrors.Errorf("failed to write %s part: %w", f.field, err)
		}
	}

	format := req.Format
	if format == "" {
		format = codec.PNG
	}
	fields := [][2]string{
		{v1.FieldThreshold, strconv.FormatFloat(req.Parameters.Threshold, 'g', -1, 64)},
		{v1.FieldMarkColor, diffimage.FormatMarkColor(req.Parameters.MarkColor)},
		{v1.FieldMarkAmount, strconv.FormatFloat(req.Parameters.MarkAmount, 'g', -1, 64)},
		{v1.FieldFormat, string(format)},
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", xerrors.Errorf("failed to write %s field: %w", field[0], err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", xerrors.Errorf("failed to close multipart writer: %w", err)
	}
	return buffer.Bytes(), writer.FormDataContentType(), nil
}
