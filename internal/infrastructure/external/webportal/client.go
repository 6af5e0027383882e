package webportal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/pkg/circuitbreaker"
)

// errorDomain tags every error produced by this package.
const errorDomain = "webportal"

// defaultTokenTTL is assumed when the portal issues a token without an
// expiry. Portal sessions observably survive about an hour; half of that is
// a safe refresh point.
const defaultTokenTTL = 30 * time.Minute

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the portal client.
type ClientConfig struct {
	// BaseURL is the portal API base URL.
	BaseURL string

	// Username and Password are the student's portal credentials.
	Username string
	Password string

	// Timeout applies per request. Portal calls can block for tens of
	// seconds during result publication windows.
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(baseURL, username, password string) ClientConfig {
	return ClientConfig{
		BaseURL:   baseURL,
		Username:  username,
		Password:  password,
		Timeout:   45 * time.Second,
		UserAgent: "portal-watch/1.0",
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the HTTP client for the academic web portal. It owns the session
// token and guards the transport with a circuit breaker; retry policy is the
// caller's concern.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker

	tokenMu     sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new portal Client.
func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    circuitbreaker.WebPortalBreaker(nil),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Login authenticates against the portal and stores the session token.
func (c *Client) Login(ctx context.Context) error {
	body := LoginRequestDTO{Username: c.config.Username, Password: c.config.Password}

	var resp LoginResponseDTO
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.doSingleRequest(ctx, http.MethodPost, "/auth/login", body, &resp, false)
	})
	if err != nil {
		err = c.classify("Login", err)
		// Rejected credentials are a session failure whatever the
		// portal's status code was.
		if !portal.IsSession(err) && !portal.IsSource(err) {
			err = portal.WrapError(errorDomain, "Login", portal.ErrSession, "login rejected", err)
		}
		return err
	}
	if resp.Token == "" {
		return portal.NewError(errorDomain, "Login", portal.ErrSession, "portal returned no session token")
	}

	ttl := defaultTokenTTL
	if resp.ExpiresIn > 0 {
		ttl = time.Duration(resp.ExpiresIn) * time.Second
	}

	c.tokenMu.Lock()
	c.token = resp.Token
	c.tokenExpiry = time.Now().Add(ttl)
	c.tokenMu.Unlock()

	return nil
}

// SessionValid reports whether an unexpired session token is held.
func (c *Client) SessionValid() bool {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token != "" && time.Now().Before(c.tokenExpiry)
}

// EnsureSession logs in when no valid session is held.
func (c *Client) EnsureSession(ctx context.Context) error {
	if c.SessionValid() {
		return nil
	}
	return c.Login(ctx)
}

// invalidateSession drops the stored token so the next call re-authenticates.
func (c *Client) invalidateSession() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenExpiry = time.Time{}
	c.tokenMu.Unlock()
}

func (c *Client) currentToken() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendanceMeta fetches the attendance header and semester lists.
func (c *Client) GetAttendanceMeta(ctx context.Context) (*AttendanceMetaDTO, error) {
	var meta AttendanceMetaDTO
	if err := c.doRequest(ctx, "GetAttendanceMeta", http.MethodGet, "/attendance/meta", nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// GetAttendance fetches the raw per-subject attendance records for one
// header/semester pair. Records are heterogeneous; callers canonicalize them
// through the Mapper.
func (c *Client) GetAttendance(ctx context.Context, header AttendanceHeaderDTO, sem SemesterRefDTO) ([]RawRecord, error) {
	body := AttendanceRequestDTO{
		HeaderID:         header.HeaderID,
		RegistrationID:   sem.RegistrationID,
		RegistrationCode: sem.RegistrationCode,
	}
	var list AttendanceListDTO
	if err := c.doRequest(ctx, "GetAttendance", http.MethodPost, "/attendance/records", body, &list); err != nil {
		return nil, err
	}
	return list.Records, nil
}

// GetSubjectDetailedAttendance fetches the per-lecture attendance list for
// one subject component. Best-effort at the call site: any failure here is
// swallowed by the aggregator.
func (c *Client) GetSubjectDetailedAttendance(ctx context.Context, req DetailRequestDTO) (*DetailedAttendanceDTO, error) {
	var detail DetailedAttendanceDTO
	if err := c.doRequest(ctx, "GetSubjectDetailedAttendance", http.MethodPost, "/attendance/subject-detail", req, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MARKS ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// GetSgpaCgpa fetches the semester-wise SGPA/CGPA table.
func (c *Client) GetSgpaCgpa(ctx context.Context) (*SgpaCgpaDTO, error) {
	var dto SgpaCgpaDTO
	if err := c.doRequest(ctx, "GetSgpaCgpa", http.MethodGet, "/gradecard/sgpa-cgpa", nil, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

// GetSemestersForGradeCard fetches the semester refs grade cards exist for.
func (c *Client) GetSemestersForGradeCard(ctx context.Context) ([]SemesterRefDTO, error) {
	var list SemesterListDTO
	if err := c.doRequest(ctx, "GetSemestersForGradeCard", http.MethodGet, "/gradecard/semesters", nil, &list); err != nil {
		return nil, err
	}
	return list.Semesters, nil
}

// GetSemestersForMarks fetches the semester refs marks reports exist for.
// Portal releases without the marks module 404 this endpoint; that surfaces
// as ErrUnsupported so callers can fall back to the grade-card list.
func (c *Client) GetSemestersForMarks(ctx context.Context) ([]SemesterRefDTO, error) {
	var list SemesterListDTO
	err := c.doRequest(ctx, "GetSemestersForMarks", http.MethodGet, "/marks/semesters", nil, &list)
	if err != nil {
		if portal.IsNotFound(err) {
			return nil, portal.WrapError(errorDomain, "GetSemestersForMarks", portal.ErrUnsupported, "marks semester list not available", err)
		}
		return nil, err
	}
	return list.Semesters, nil
}

// GetGradeCard fetches the grade-card records for one semester. The portal
// returns either a bare record list or a {"gradecard": [...]} wrapper
// depending on release; both decode to the same record slice.
func (c *Client) GetGradeCard(ctx context.Context, ref SemesterRefDTO) ([]RawRecord, error) {
	body := GradeCardRequestDTO{RegistrationID: ref.RegistrationID, RegistrationCode: ref.RegistrationCode}

	var raw json.RawMessage
	if err := c.doRequest(ctx, "GetGradeCard", http.MethodPost, "/gradecard", body, &raw); err != nil {
		return nil, err
	}

	records, err := decodeGradeCard(raw)
	if err != nil {
		return nil, portal.WrapError(errorDomain, "GetGradeCard", portal.ErrSource, "undecodable grade card payload", err)
	}
	return records, nil
}

// decodeGradeCard handles both observed grade-card payload shapes.
func decodeGradeCard(data []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []RawRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var wrapper GradeCardDTO
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Records, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTICES
// ══════════════════════════════════════════════════════════════════════════════

// GetNotices fetches the notice board. Portals without a notice board 404
// this endpoint; that surfaces as ErrUnsupported so callers can skip notice
// tracking.
func (c *Client) GetNotices(ctx context.Context) ([]NoticeDTO, error) {
	var list NoticeListDTO
	err := c.doRequest(ctx, "GetNotices", http.MethodGet, "/notices", nil, &list)
	if err != nil {
		if portal.IsNotFound(err) {
			return nil, portal.WrapError(errorDomain, "GetNotices", portal.ErrUnsupported, "notice board not available", err)
		}
		return nil, err
	}
	return list.Notices, nil
}

// DownloadMarksPdf downloads the generated marks report PDF for one
// semester.
func (c *Client) DownloadMarksPdf(ctx context.Context, ref SemesterRefDTO) ([]byte, error) {
	const op = "DownloadMarksPdf"

	if err := c.EnsureSession(ctx); err != nil {
		return nil, err
	}

	body := GradeCardRequestDTO{RegistrationID: ref.RegistrationID, RegistrationCode: ref.RegistrationCode}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, portal.WrapError(errorDomain, op, portal.ErrSource, "marshal request", err)
	}

	var pdf []byte
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.config.BaseURL+"/marks/report-pdf", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, true)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return portalError(resp.StatusCode, data)
		}

		pdf = data
		return nil
	})
	if err != nil {
		return nil, c.classify(op, err)
	}
	return pdf, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ══════════════════════════════════════════════════════════════════════════════

// doRequest runs one authenticated JSON call through the circuit breaker and
// maps the outcome onto the monitor error taxonomy.
func (c *Client) doRequest(ctx context.Context, op, method, path string, body, result any) error {
	if err := c.EnsureSession(ctx); err != nil {
		return err
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.doSingleRequest(ctx, method, path, body, result, true)
	})
	return c.classify(op, err)
}

// doSingleRequest performs one HTTP round trip.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body, result any, authed bool) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, authed)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return portalError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// setHeaders applies the standard headers, plus the session token for
// authenticated calls.
func (c *Client) setHeaders(req *http.Request, authed bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if authed {
		if token := c.currentToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// portalError builds the typed error for a non-2xx response, preferring the
// portal's own error body when it parses.
func portalError(status int, body []byte) error {
	var dto PortalErrorDTO
	if err := json.Unmarshal(body, &dto); err == nil && dto.Message != "" {
		dto.Status = status
		return &dto
	}
	return &PortalErrorDTO{Status: status, Message: fmt.Sprintf("portal returned status %d", status)}
}

// classify maps a transport-level error onto the monitor error taxonomy.
// Session rejections also drop the stored token so the next call
// re-authenticates.
func (c *Client) classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var monitorErr *portal.Error
	if errors.As(err, &monitorErr) {
		return err
	}

	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return portal.WrapError(errorDomain, op, portal.ErrSource, "portal circuit open", err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return portal.WrapError(errorDomain, op, portal.ErrTimeout, "portal call timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return portal.WrapError(errorDomain, op, portal.ErrTimeout, "portal call timed out", err)
	}

	var portalErr *PortalErrorDTO
	if errors.As(err, &portalErr) {
		switch {
		case portalErr.Status == http.StatusUnauthorized || portalErr.Status == http.StatusForbidden:
			c.invalidateSession()
			return portal.WrapError(errorDomain, op, portal.ErrSession, "portal rejected session", err)
		case portalErr.Status == http.StatusNotFound:
			return portal.WrapError(errorDomain, op, portal.ErrNotFound, "portal resource not found", err)
		default:
			return portal.WrapError(errorDomain, op, portal.ErrSource, "portal request failed", err)
		}
	}

	return portal.WrapError(errorDomain, op, portal.ErrSource, "portal unreachable", err)
}

// IsRetryable reports whether a portal error is worth retrying at the call
// site. Session, not-found and unsupported outcomes will not improve on a
// blind retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if portal.IsSession(err) || portal.IsNotFound(err) || errors.Is(err, portal.ErrUnsupported) {
		return false
	}
	return portal.IsSource(err)
}

// BreakerState exposes the transport circuit state for the status surface.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}
