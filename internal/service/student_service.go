package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/internal/recordstore"
	appErrors "github.com/noah-isme/sma-enrollment/pkg/errors"
	"github.com/noah-isme/sma-enrollment/pkg/export"
)

const (
	studentCachePattern = "students:*"
	studentSummaryKey   = "students:summary"
)

// ErrCollectionNotEmpty is returned by Replace when overwrite is false and records exist.
var ErrCollectionNotEmpty = errors.New("collection already holds records")

type studentCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// SubmitStudentRequest is the enrollment form payload.
type SubmitStudentRequest struct {
	FirstName   string           `json:"first_name" validate:"required"`
	LastName    string           `json:"last_name" validate:"required"`
	DateOfBirth string           `json:"date_of_birth" validate:"required"`
	Gender      string           `json:"gender" validate:"required"`
	Email       string           `json:"email" validate:"required"`
	Phone       string           `json:"phone" validate:"required"`
	Guardian    *models.Guardian `json:"guardian"`
	Academic    *models.Academic `json:"academic"`
}

// UpdateStatusRequest carries the new status for a record.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ExportResult is a rendered student listing.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// StudentService runs every load-mutate-save cycle of the enrollment collection.
type StudentService struct {
	store     recordstore.Store
	cache     studentCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time

	// mu serialises access within this process only.
	mu sync.Mutex
}

// NewStudentService constructs the student service. cache and metrics may be nil.
func NewStudentService(store recordstore.Store, cache studentCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: store, cache: cache, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// List returns the records matching filter in stored order. The flag reports a cache hit.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentRecord, bool, error) {
	key := listCacheKey(filter)
	var cached []models.StudentRecord
	if s.cacheGet(ctx, key, &cached) {
		return cached, true, nil
	}

	s.mu.Lock()
	records := s.load(ctx)
	s.mu.Unlock()

	matched := recordstore.Filter(records, filter.Query, filter.Status)
	s.cacheSet(ctx, key, matched)
	return matched, false, nil
}

// Get returns the record with the given student id.
func (s *StudentService) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	s.mu.Lock()
	records := s.load(ctx)
	s.mu.Unlock()

	idx := recordstore.IndexByStudentID(records, studentID)
	if idx == recordstore.NotFound {
		return nil, recordNotFound()
	}
	record := records[idx]
	return &record, nil
}

// Submit validates the form and appends a new pending record.
func (s *StudentService) Submit(ctx context.Context, req SubmitStudentRequest, actor models.UserInfo) (*models.StudentRecord, error) {
	req = normaliseSubmit(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrIncompleteForm.Code, appErrors.ErrIncompleteForm.Status, appErrors.ErrIncompleteForm.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	record := models.StudentRecord{
		StudentID:     recordstore.GenerateNextID(records),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		DateOfBirth:   req.DateOfBirth,
		Gender:        req.Gender,
		Email:         req.Email,
		Phone:         req.Phone,
		Guardian:      req.Guardian,
		Academic:      req.Academic,
		Status:        models.StatusPending,
		SubmittedBy:   actor.Username,
		SubmittedRole: string(actor.Role),
	}
	if err := s.save(ctx, append(records, record)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}

	s.logger.Info("student submitted",
		zap.String("student_id", record.StudentID),
		zap.String("submitted_by", actor.Username),
	)
	s.invalidate(ctx)
	return &record, nil
}

// UpdateStatus sets the status of the record with the given student id.
func (s *StudentService) UpdateStatus(ctx context.Context, studentID string, status models.StudentStatus) (*models.StudentRecord, error) {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	idx := recordstore.IndexByStudentID(records, studentID)
	if err := s.updateAt(ctx, records, idx, status); err != nil {
		return nil, err
	}
	record := records[idx]
	s.logger.Info("student status updated", zap.String("student_id", studentID), zap.String("status", string(status)))
	return &record, nil
}

// UpdateStatusAt sets the status of the record at a position of a fresh load.
func (s *StudentService) UpdateStatusAt(ctx context.Context, index int, status models.StudentStatus) error {
	if _, ok := models.ParseStatus(string(status)); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "invalid status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateAt(ctx, s.load(ctx), index, status)
}

// Locate returns the position of the record matching probe, or recordstore.NotFound.
func (s *StudentService) Locate(ctx context.Context, probe models.StudentRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return recordstore.FindIndex(s.load(ctx), probe)
}

// Summary counts records per status. The flag reports a cache hit.
func (s *StudentService) Summary(ctx context.Context) (models.StudentSummary, bool, error) {
	var summary models.StudentSummary
	if s.cacheGet(ctx, studentSummaryKey, &summary) {
		return summary, true, nil
	}

	s.mu.Lock()
	records := s.load(ctx)
	s.mu.Unlock()

	summary = recordstore.Summarize(records)
	s.cacheSet(ctx, studentSummaryKey, summary)
	return summary, false, nil
}

// Replace swaps the whole collection for records, as a bulk import does.
// Without overwrite an existing non-empty collection is left untouched.
func (s *StudentService) Replace(ctx context.Context, records []models.StudentRecord, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.load(ctx); len(existing) > 0 && !overwrite {
		return fmt.Errorf("%w: %d record(s)", ErrCollectionNotEmpty, len(existing))
	}
	if err := s.save(ctx, records); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	s.logger.Info("student collection replaced", zap.Int("count", len(records)))
	s.invalidate(ctx)
	return nil
}

// Export renders the filtered listing in the requested format.
func (s *StudentService) Export(ctx context.Context, filter models.StudentFilter, format export.Format) (*ExportResult, error) {
	records, _, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	body, err := export.RendererFor(format).Render(studentDataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("students-%s.%s", s.now().UTC().Format("20060102-150405"), format.Extension()),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *StudentService) updateAt(ctx context.Context, records []models.StudentRecord, index int, status models.StudentStatus) error {
	err := recordstore.UpdateStatus(ctx, metricStore{store: s.store, metrics: s.metrics}, records, index, status)
	if err != nil {
		if errors.Is(err, recordstore.ErrRecordNotFound) {
			return recordNotFound()
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save status")
	}
	s.invalidate(ctx)
	return nil
}

func (s *StudentService) load(ctx context.Context) []models.StudentRecord {
	return metricStore{store: s.store, metrics: s.metrics}.LoadAll(ctx)
}

func (s *StudentService) save(ctx context.Context, records []models.StudentRecord) error {
	return metricStore{store: s.store, metrics: s.metrics}.SaveAll(ctx, records)
}

func (s *StudentService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *StudentService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func (s *StudentService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, studentCachePattern); err != nil {
		s.logger.Warn("student cache invalidation failed", zap.Error(err))
	}
}

// metricStore times store calls without changing their results.
type metricStore struct {
	store   recordstore.Store
	metrics *MetricsService
}

func (m metricStore) LoadAll(ctx context.Context) []models.StudentRecord {
	start := time.Now()
	records := m.store.LoadAll(ctx)
	m.metrics.ObserveStoreOperation("load_all", time.Since(start), nil)
	m.metrics.SetStoredRecords(len(records))
	return records
}

func (m metricStore) SaveAll(ctx context.Context, records []models.StudentRecord) error {
	start := time.Now()
	err := m.store.SaveAll(ctx, records)
	m.metrics.ObserveStoreOperation("save_all", time.Since(start), err)
	if err == nil {
		m.metrics.SetStoredRecords(len(records))
	}
	return err
}

func recordNotFound() error {
	return appErrors.Clone(appErrors.ErrNotFound, recordstore.ErrRecordNotFound.Error())
}

func listCacheKey(filter models.StudentFilter) string {
	status := strings.ToLower(strings.TrimSpace(filter.Status))
	if status == "" {
		status = strings.ToLower(models.StatusAll)
	}
	return fmt.Sprintf("students:list:%s:%s", status, strings.ToLower(strings.TrimSpace(filter.Query)))
}

func normaliseSubmit(req SubmitStudentRequest) SubmitStudentRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	req.Gender = strings.TrimSpace(req.Gender)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	return req
}

func studentDataset(records []models.StudentRecord) export.Dataset {
	data := export.Dataset{
		Title:   "Student Enrollments",
		Headers: []string{"Student ID", "Name", "Date of Birth", "Gender", "Email", "Phone", "Guardian", "Strand", "Status"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, r := range records {
		var guardian, strand string
		if r.Guardian != nil {
			guardian = r.Guardian.Name
		}
		if r.Academic != nil {
			strand = r.Academic.Strand
		}
		data.Rows = append(data.Rows, []string{
			r.StudentID, r.FullName(), r.DateOfBirth, r.Gender, r.Email, r.Phone, guardian, strand, string(r.EffectiveStatus()),
		})
	}
	return data
}
