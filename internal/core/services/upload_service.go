package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kamal-hamza/pupsnap/internal/core/domain"
	"github.com/kamal-hamza/pupsnap/internal/log"
	"github.com/kamal-hamza/pupsnap/pkg/config"
)

// Multipart form fields
const (
	FieldImage             = "dogPoopImage"
	FieldTimestamp         = "timestamp"
	FieldType              = "type"
	FieldPetHealthTracking = "petHealthTracking"

	SampleType = "dog-poop-sample"
)

// isoMillis matches JavaScript's Date.toISOString
const isoMillis = "2006-01-02T15:04:05.000Z"

// ProgressFunc receives upload progress snapshots
type ProgressFunc func(domain.UploadProgress)

// UploadService validates an image and posts it to the configured endpoint.
// It keeps no state between calls.
type UploadService struct {
	endpoint  config.EndpointConfig
	client    *http.Client
	userAgent string
	now       func() time.Time
}

func NewUploadService(endpoint config.EndpointConfig, client *http.Client, userAgent string) *UploadService {
	return &UploadService{
		endpoint:  endpoint,
		client:    client,
		userAgent: userAgent,
		now:       time.Now,
	}
}

// Endpoint returns the resolved endpoint configuration
func (s *UploadService) Endpoint() config.EndpointConfig {
	return s.endpoint
}

// Validate checks the asset against the type allow-list and the size limit
func (s *UploadService) Validate(asset *domain.ImageAsset) error {
	if asset == nil {
		return domain.ErrNoAsset
	}
	if !s.endpoint.Accepts(asset.MIMEType) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidType, asset.MIMEType)
	}
	if asset.Size > s.endpoint.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrTooLarge, asset.Size, s.endpoint.MaxBytes)
	}
	return nil
}

// Upload sends the asset in a single POST and returns exactly one outcome.
// onProgress may be nil; it is never called after Upload returns.
func (s *UploadService) Upload(ctx context.Context, asset *domain.ImageAsset, onProgress ProgressFunc) domain.UploadOutcome {
	if err := s.Validate(asset); err != nil {
		return domain.Failure(err)
	}

	requestID := uuid.NewString()
	logger := log.With("component", "upload", "request_id", requestID, "name", asset.Name)

	body, contentType, err := s.buildBody(asset)
	if err != nil {
		logger.Error("failed to build multipart body", "error", err)
		return domain.Failure(fmt.Errorf("%w: %w", domain.ErrNetwork, err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.endpoint.Timeout)
	defer cancel()

	reader := newProgressReader(body, onProgress)
	defer reader.close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint.URL, reader)
	if err != nil {
		return domain.Failure(fmt.Errorf("%w: %w", domain.ErrNetwork, err))
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	logger.Info("upload started", "endpoint", s.endpoint.URL, "bytes", len(body))
	reader.start()

	resp, err := s.client.Do(req)
	if err != nil {
		mapped := mapTransportError(err)
		logger.Warn("upload failed", "error", err, "reason", domain.FailureReason(mapped))
		return domain.Failure(mapped)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10)); err != nil {
		logger.Debug("failed to drain response body", "error", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		reader.finish()
		logger.Info("upload succeeded", "status", resp.StatusCode)
		return domain.Success(resp.StatusCode)
	}

	statusErr := &domain.HTTPStatusError{Code: resp.StatusCode, Status: statusText(resp)}
	logger.Warn("upload rejected", "status", resp.StatusCode)
	return domain.Failure(statusErr)
}

// buildBody encodes the multipart form: image part first, then the auxiliary fields
func (s *UploadService) buildBody(asset *domain.ImageAsset) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldImage, escapeQuotes(asset.Name)))
	h.Set("Content-Type", asset.MIMEType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}

	fields := [][2]string{
		{FieldTimestamp, s.now().UTC().Format(isoMillis)},
		{FieldType, SampleType},
		{FieldPetHealthTracking, "true"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// mapTransportError folds client errors into ErrTimeout or ErrNetwork
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
}

// statusText returns the reason phrase without the numeric code
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if text == "" {
		text = "HTTP " + strconv.Itoa(resp.StatusCode)
	}
	return text
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports bytes consumed by the transport.
// Snapshots are emitted in non-decreasing order and only while open.
type progressReader struct {
	r     *bytes.Reader
	total int64

	mu          sync.Mutex
	sent        int64
	lastSent    int64
	lastPercent int
	emit        ProgressFunc
	closed      bool
}

func newProgressReader(body []byte, emit ProgressFunc) *progressReader {
	return &progressReader{
		r:           bytes.NewReader(body),
		total:       int64(len(body)),
		emit:        emit,
		lastSent:    -1,
		lastPercent: -1,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		p.report(false)
		p.mu.Unlock()
	}
	return n, err
}

// start emits the initial zero snapshot
func (p *progressReader) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(true)
}

// finish emits the final snapshot unless it was already reported
func (p *progressReader) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report(false)
}

func (p *progressReader) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

// report must be called with mu held
func (p *progressReader) report(force bool) {
	if p.emit == nil || p.closed {
		return
	}
	if p.sent == p.lastSent && !force {
		return
	}
	snap := domain.NewUploadProgress(p.sent, p.total)
	final := p.sent == p.total
	if !force && !final && snap.PercentComplete == p.lastPercent {
		return
	}
	p.lastSent = p.sent
	p.lastPercent = snap.PercentComplete
	p.emit(snap)
}
