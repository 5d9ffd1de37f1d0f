package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/utils"
)

// Timeouts bounds each class of backend call.
type Timeouts struct {
	Mutate time.Duration
	Read   time.Duration
	Health time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Mutate: 15 * time.Second,
		Read:   10 * time.Second,
		Health: 5 * time.Second,
	}
}

// Client talks to the onboarding backend. All candidate-scoped calls are keyed
// by numeric candidate id.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeouts   Timeouts
	validate   *validator.Validate

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeouts(t Timeouts) Option {
	return func(c *Client) { c.timeouts = t }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeouts:   DefaultTimeouts(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// FetchSteps returns the canonical steps for a candidate with status normalized
// and data decoded.
func (c *Client) FetchSteps(ctx context.Context, candidateID model.CandidateID) ([]model.StepRecord, error) {
	var dtos []StepDTO
	path := "/api/onboarding/by-id/" + candidateID.String()
	if err := c.doJSON(ctx, "fetch steps", http.MethodGet, path, c.timeouts.Read, nil, &dtos); err != nil {
		return nil, err
	}
	return toStepRecords(ctx, dtos), nil
}

// FetchStepsByEmail is the legacy email-keyed lookup. HR flows must use FetchSteps.
func (c *Client) FetchStepsByEmail(ctx context.Context, email string) ([]model.StepRecord, error) {
	var dtos []StepDTO
	path := "/api/onboarding/" + url.PathEscape(email)
	if err := c.doJSON(ctx, "fetch steps by email", http.MethodGet, path, c.timeouts.Read, nil, &dtos); err != nil {
		return nil, err
	}
	return toStepRecords(ctx, dtos), nil
}

// UpdateStep persists a step status and its data.
func (c *Client) UpdateStep(ctx context.Context, candidateID model.CandidateID, stepID model.StepID, status model.StepStatus, data any) error {
	req := UpdateStepRequest{StepID: string(stepID), Status: string(status), Data: data}
	if err := c.validateRequest(req); err != nil {
		return err
	}
	path := "/api/onboarding/" + candidateID.String() + "/step"
	return c.doJSON(ctx, "update step", http.MethodPost, path, c.timeouts.Mutate, req, &Ack{})
}

// NotifyStepCompleted asks the backend to send the step-completion notice to the candidate.
func (c *Client) NotifyStepCompleted(ctx context.Context, candidateID model.CandidateID, stepID model.StepID) error {
	req := StepCompletedNotice{Email: candidateID.String(), Step: string(stepID)}
	if err := c.validateRequest(req); err != nil {
		return err
	}
	return c.doJSON(ctx, "notify step completed", http.MethodPost, "/api/onboarding/step-completed", c.timeouts.Mutate, req, &Ack{})
}

// FetchCandidates returns every candidate, reading the list page by page
// until X-Total-Count is reached. A server that omits the header is treated
// as returning the whole list in one page.
func (c *Client) FetchCandidates(ctx context.Context) ([]CandidateSummary, error) {
	candidates := []CandidateSummary{}
	page := utils.Page{Limit: utils.PageSizeMax}
	for {
		var batch []CandidateSummary
		path := "/api/candidates?offset=" + strconv.Itoa(page.Offset) + "&limit=" + strconv.Itoa(page.Limit)
		header, err := c.send(ctx, "fetch candidates", http.MethodGet, path, c.timeouts.Read, nil, "", &batch)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, batch...)

		total, ok := utils.ParseTotalCount(header.Get(utils.TotalCountHeader))
		if !ok {
			return candidates, nil
		}
		next, more := page.Next(len(batch), total)
		if !more {
			return candidates, nil
		}
		page = next
	}
}

// FetchCandidate returns one candidate by id.
func (c *Client) FetchCandidate(ctx context.Context, candidateID model.CandidateID) (*CandidateSummary, error) {
	var candidate CandidateSummary
	path := "/api/candidates/" + candidateID.String()
	if err := c.doJSON(ctx, "fetch candidate", http.MethodGet, path, c.timeouts.Read, nil, &candidate); err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (c *Client) UpdateCandidateProgress(ctx context.Context, candidateID model.CandidateID, update ProgressUpdate) (*CandidateSummary, error) {
	if err := c.validateRequest(update); err != nil {
		return nil, err
	}
	var candidate CandidateSummary
	path := "/api/candidates/" + candidateID.String() + "/progress"
	if err := c.doJSON(ctx, "update candidate progress", http.MethodPatch, path, c.timeouts.Mutate, update, &candidate); err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (c *Client) ListNotifications(ctx context.Context, userEmail string) ([]NotificationDTO, error) {
	var notifications []NotificationDTO
	path := "/api/notifications/" + url.PathEscape(userEmail)
	if err := c.doJSON(ctx, "list notifications", http.MethodGet, path, c.timeouts.Read, nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (c *Client) CreateNotification(ctx context.Context, req NotificationRequest) (*NotificationDTO, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	var created NotificationDTO
	if err := c.doJSON(ctx, "create notification", http.MethodPost, "/api/notifications", c.timeouts.Mutate, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	path := "/api/notifications/" + url.PathEscape(id) + "/read"
	return c.doJSON(ctx, "mark notification read", http.MethodPatch, path, c.timeouts.Mutate, nil, nil)
}

func (c *Client) ClearNotifications(ctx context.Context, userEmail string) error {
	path := "/api/notifications/user/" + url.PathEscape(userEmail)
	return c.doJSON(ctx, "clear notifications", http.MethodDelete, path, c.timeouts.Mutate, nil, nil)
}

// UploadDocument sends a file as multipart form data together with the candidate id.
func (c *Client) UploadDocument(ctx context.Context, candidateID model.CandidateID, fileName string, content io.Reader) (*DocumentUpload, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("candidateId", candidateID.String()); err != nil {
		return nil, fmt.Errorf("failed to write candidateId field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	var upload DocumentUpload
	err = c.do(ctx, "upload document", http.MethodPost, "/api/documents/upload", c.timeouts.Mutate, &body, writer.FormDataContentType(), &upload)
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}
	var resp LoginResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/api/auth/login", c.timeouts.Mutate, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &model.RemoteSyncError{Op: "login", Kind: model.SyncErrorHTTP, StatusCode: http.StatusUnauthorized, Message: resp.Message}
	}
	return &resp, nil
}

// HealthCheck reports whether the backend answers within the health timeout.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doJSON(ctx, "health check", http.MethodGet, "/api/health", c.timeouts.Health, nil, nil)
}

func (c *Client) validateRequest(req any) error {
	if err := c.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("invalid request: %v", validationErrors)
		}
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, timeout time.Duration, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, timeout, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, timeout time.Duration, body io.Reader, contentType string, out any) error {
	_, err := c.send(ctx, op, method, path, timeout, body, contentType, out)
	return err
}

// send performs the request, decodes a successful body into out and returns
// the response headers.
func (c *Client) send(ctx context.Context, op, method, path string, timeout time.Duration, body io.Reader, contentType string, out any) (http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.RemoteSyncError{
			Op:         op,
			Kind:       model.SyncErrorHTTP,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp),
		}
	}

	if out == nil {
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.Header, nil
		}
		if isTimeout(err) {
			return nil, &model.RemoteSyncError{Op: op, Kind: model.SyncErrorTimeout, Err: err}
		}
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return resp.Header, nil
}

func classifyTransportError(op string, err error) error {
	if isTimeout(err) {
		slog.Warn("backend request timed out", "op", op, "error", err)
		return &model.RemoteSyncError{Op: op, Kind: model.SyncErrorTimeout, Err: err}
	}
	return &model.RemoteSyncError{Op: op, Kind: model.SyncErrorUnreachable, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an error
// response, falling back to the body text or the status text.
func errorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func toStepRecords(ctx context.Context, dtos []StepDTO) []model.StepRecord {
	records := make([]model.StepRecord, 0, len(dtos))
	for _, dto := range dtos {
		stepID := model.StepID(dto.StepID)
		record := model.StepRecord{StepID: stepID}

		status, err := model.ParseStepStatus(dto.Status)
		if err != nil {
			slog.WarnContext(ctx, "unrecognized step status from backend", "step_id", dto.StepID, "status", dto.Status)
			status = model.StepStatusPending
			record.Warning = &model.DataParseWarning{StepID: stepID, Raw: dto.Status, Err: err}
		}
		record.Status = status

		data, warning := ParseStepData(stepID, dto.Data)
		record.Data = data
		if warning != nil {
			slog.WarnContext(ctx, "step data kept as raw string", "step_id", dto.StepID, "error", warning.Err)
			record.Warning = warning
		}
		records = append(records, record)
	}
	return records
}
