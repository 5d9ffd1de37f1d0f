package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onboardhr/onboarding/internal/auth"
	"github.com/onboardhr/onboarding/internal/mailer"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/internal/uploads"
)

// MockMailer is a mock implementation of Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg mailer.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []portalmodel.StepEvent
}

func (b *recordingBroadcaster) Publish(event portalmodel.StepEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

type memoryDriver struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{files: map[string][]byte{}}
}

func (d *memoryDriver) Save(_ context.Context, key string, body io.Reader, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[key] = data
	return nil
}

func (d *memoryDriver) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[key]
	if !ok {
		return nil, "", uploads.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "application/pdf", nil
}

func (d *memoryDriver) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, key)
	return nil
}

func (d *memoryDriver) GenerateURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "/api/documents/" + key, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(portalmodel.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createCandidate(t *testing.T, svc *CandidateService, email string) *portalmodel.Candidate {
	t.Helper()
	c, err := svc.Create(context.Background(), portalmodel.CreateCandidateRequest{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      email,
		Password:   "correct-horse",
		Position:   "Engineer",
		Department: "R&D",
	})
	require.NoError(t, err)
	return c
}

func TestCandidateService_Create(t *testing.T) {
	db := setupTestDB(t)
	m := new(MockMailer)
	m.On("Send", mock.Anything, mock.MatchedBy(func(msg mailer.Message) bool {
		return msg.To == "ada@example.com"
	})).Return(nil)
	svc := NewCandidateService(db, nil, m, mailer.NewTemplates("Acme", "http://portal"))

	c := createCandidate(t, svc, "  Ada@Example.com ")

	assert.Equal(t, "ada@example.com", c.Email)
	assert.Equal(t, portalmodel.CandidateStatusPending, c.Status)
	assert.Equal(t, 11, c.Progress, "login step seeded as completed")

	var user portalmodel.User
	require.NoError(t, db.Where("email = ?", "ada@example.com").First(&user).Error)
	assert.Equal(t, model.RoleCandidate, user.Role)
	require.NotNil(t, user.CandidateID)
	assert.Equal(t, c.ID, *user.CandidateID)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	var record portalmodel.StepRecord
	require.NoError(t, db.Where("candidate_id = ? AND step_id = ?", c.ID, model.StepLogin).First(&record).Error)
	assert.Equal(t, model.StepStatusCompleted, record.Status)
	m.AssertExpectations(t)
}

func TestCandidateService_CreateDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCandidateService(db, nil, nil, nil)
	createCandidate(t, svc, "ada@example.com")

	_, err := svc.Create(context.Background(), portalmodel.CreateCandidateRequest{
		FirstName: "Other", Email: "ADA@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCandidateService_CreateMailFailureIsIgnored(t *testing.T) {
	db := setupTestDB(t)
	m := new(MockMailer)
	m.On("Send", mock.Anything, mock.Anything).Return(errors.New("ses down"))
	svc := NewCandidateService(db, nil, m, mailer.NewTemplates("Acme", ""))

	c := createCandidate(t, svc, "ada@example.com")
	assert.NotZero(t, c.ID)
}

func TestCandidateService_ListAndProgress(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCandidateService(db, nil, nil, nil)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		createCandidate(t, svc, email)
	}

	limit := 2
	page, err := svc.List(ctx, nil, &limit)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, "c@example.com", page.Items[0].Email)

	offset := 2
	page, err = svc.List(ctx, &offset, nil)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 20, page.Limit)

	progress := 75
	updated, err := svc.UpdateProgress(ctx, page.Items[0].ID, portalmodel.ProgressUpdateRequest{
		Progress: &progress, Status: portalmodel.CandidateStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, 75, updated.Progress)
	assert.Equal(t, portalmodel.CandidateStatusActive, updated.Status)

	_, err = svc.UpdateProgress(ctx, 999, portalmodel.ProgressUpdateRequest{Progress: &progress})
	assert.ErrorIs(t, err, ErrCandidateNotFound)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOnboardingService_GetSteps(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	svc := NewOnboardingService(db, nil, nil, nil, nil)

	steps, err := svc.GetSteps(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, steps, 9)
	assert.Equal(t, model.StepLogin, steps[0].StepID)
	assert.Equal(t, model.StepStatusCompleted, steps[0].Status)
	assert.Equal(t, model.StepStatusPending, steps[1].Status)
	assert.True(t, steps[1].Data.IsNull())

	byEmail, err := svc.GetStepsByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, steps, byEmail)

	_, err = svc.GetSteps(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCandidateNotFound)
}

func TestOnboardingService_UpdateStep(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	b := &recordingBroadcaster{}
	svc := NewOnboardingService(db, nil, b, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateStep(ctx, c.ID, portalmodel.UpdateStepRequest{
		StepID: "forms", Status: "in-progress", Data: json.RawMessage(`{"phone":"555"}`),
	})
	require.NoError(t, err)
	record, err := svc.UpdateStep(ctx, c.ID, portalmodel.UpdateStepRequest{
		StepID: "forms", Status: "COMPLETED", Data: json.RawMessage(`{"phone":"556"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StepStatusCompleted, record.Status)

	var count int64
	db.Model(&portalmodel.StepRecord{}).Where("candidate_id = ? AND step_id = ?", c.ID, "forms").Count(&count)
	assert.Equal(t, int64(1), count, "upsert keeps one record per step")

	steps, err := svc.GetSteps(ctx, c.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"556"}`, string(steps[1].Data))

	got, err := NewCandidateService(db, nil, nil, nil).Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 22, got.Progress)

	require.Len(t, b.events, 2)
	assert.Equal(t, portalmodel.StepEventType, b.events[1].Type)
	assert.Equal(t, 22, b.events[1].Progress)

	activities, err := svc.CandidateActivities(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
}

func TestOnboardingService_UpdateStepRejects(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	svc := NewOnboardingService(db, nil, nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		candidateID uint
		req         portalmodel.UpdateStepRequest
		want        error
	}{
		{"unknown step", c.ID, portalmodel.UpdateStepRequest{StepID: "payroll", Status: "completed"}, model.ErrUnknownStep},
		{"bad status", c.ID, portalmodel.UpdateStepRequest{StepID: "forms", Status: "done"}, ErrInvalidStatus},
		{"missing candidate", 999, portalmodel.UpdateStepRequest{StepID: "forms", Status: "completed"}, ErrCandidateNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateStep(ctx, tt.candidateID, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOnboardingService_StepCompleted(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	m := new(MockMailer)
	m.On("Send", mock.Anything, mock.MatchedBy(func(msg mailer.Message) bool {
		return msg.To == "ada@example.com"
	})).Return(nil)
	svc := NewOnboardingService(db, nil, nil, m, mailer.NewTemplates("Acme", ""))
	ctx := context.Background()

	got, err := svc.StepCompleted(ctx, portalmodel.StepCompletedRequest{Email: "ada@example.com", Step: "forms"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	stored, err := findCandidate(ctx, db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, portalmodel.CandidateStatusActive, stored.Status)

	_, err = svc.StepCompleted(ctx, portalmodel.StepCompletedRequest{ID: json.Number("1"), Step: "gamification"})
	require.NoError(t, err)
	stored, err = findCandidate(ctx, db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, portalmodel.CandidateStatusCompleted, stored.Status)

	_, err = svc.StepCompleted(ctx, portalmodel.StepCompletedRequest{Email: "nobody@example.com", Step: "forms"})
	assert.ErrorIs(t, err, ErrCandidateNotFound)

	recent, err := svc.RecentActivities(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.StepGamification, recent[0].StepID)
	m.AssertNumberOfCalls(t, "Send", 2)
}

func TestOnboardingService_StepData(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	svc := NewOnboardingService(db, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.StepData(ctx, c.ID, model.StepHRReview)
	assert.ErrorIs(t, err, ErrStepDataMissing)

	_, err = svc.UpdateStep(ctx, c.ID, portalmodel.UpdateStepRequest{
		StepID: "hr-review", Status: "completed", Data: json.RawMessage(`{"fixedCTC":"1200000"}`),
	})
	require.NoError(t, err)
	data, err := svc.StepData(ctx, c.ID, model.StepHRReview)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fixedCTC":"1200000"}`, string(data))
}

func TestUserService_Login(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	issuer := auth.NewTokenIssuer("0123456789abcdef0123", time.Hour, "test")
	svc := NewUserService(db, issuer)
	ctx := context.Background()

	resp, err := svc.Login(ctx, "ada@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, model.RoleCandidate, resp.Role)
	assert.Equal(t, c.ID, resp.ID)

	claims, err := issuer.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, c.ID, claims.CandidateID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ghost@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_EnsureStaffUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db, auth.NewTokenIssuer("0123456789abcdef0123", time.Hour, "test"))
	ctx := context.Background()

	require.NoError(t, svc.EnsureStaffUser(ctx, "HR@example.com", "hr-password", model.RoleHR, "Grace", "Hopper"))
	require.NoError(t, svc.EnsureStaffUser(ctx, "hr@example.com", "other", model.RoleHR, "Grace", "Hopper"))

	resp, err := svc.Login(ctx, "hr@example.com", "hr-password")
	require.NoError(t, err)
	assert.Equal(t, model.RoleHR, resp.Role)

	assert.Error(t, svc.EnsureStaffUser(ctx, "c@example.com", "pw", model.RoleCandidate, "", ""))
}

func TestNotificationService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewNotificationService(db)
	ctx := context.Background()

	first, err := svc.Create(ctx, portalmodel.NotificationRequest{UserEmail: "Ada@example.com", Type: "info", Title: "one"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, portalmodel.NotificationRequest{UserEmail: "ada@example.com", Type: "success", Title: "two"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, portalmodel.NotificationRequest{UserEmail: "bob@example.com", Type: "info", Title: "bob"})
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Title)

	require.NoError(t, svc.MarkRead(ctx, first.ID))
	assert.ErrorIs(t, svc.MarkRead(ctx, 999), ErrNotificationNotFound)
	list, _ = svc.ListForUser(ctx, "ada@example.com")
	assert.True(t, list[1].Read)

	n, err := svc.ClearForUser(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	bobs, _ := svc.ListForUser(ctx, "bob@example.com")
	require.Len(t, bobs, 1)
	require.NoError(t, svc.Delete(ctx, bobs[0].ID))
	assert.ErrorIs(t, svc.Delete(ctx, bobs[0].ID), ErrNotificationNotFound)
}

func TestDocumentService_Upload(t *testing.T) {
	db := setupTestDB(t)
	c := createCandidate(t, NewCandidateService(db, nil, nil, nil), "ada@example.com")
	driver := newMemoryDriver()
	svc := NewDocumentService(db, uploads.NewUploadService(driver))
	ctx := context.Background()

	content := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	doc, err := svc.Upload(ctx, c.ID, "offer.pdf", bytes.NewReader(content), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "offer.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.FileType)
	assert.Equal(t, int64(len(content)), doc.FileSize)
	assert.Contains(t, driver.files, doc.StorageRef)

	got, err := svc.Get(ctx, doc.StorageRef)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	docs, err := svc.ListForCandidate(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = svc.Upload(ctx, 999, "x.pdf", bytes.NewReader(content), "application/pdf")
	assert.ErrorIs(t, err, ErrCandidateNotFound)
	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestBGVChecks(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	checks := BGVChecks(now)
	require.Len(t, checks, 5)
	for _, check := range checks {
		assert.Equal(t, "completed", check.Status)
		assert.Equal(t, 100, check.Progress)
		assert.Equal(t, now, check.CompletedAt)
	}
}
