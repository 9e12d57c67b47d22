package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/pkg/storage"
)

// DefaultStudentsFile is the collection file name used when none is configured.
const DefaultStudentsFile = "students.json"

// StudentFileRepository keeps the student collection as a pretty-printed JSON array.
type StudentFileRepository struct {
	storage  *storage.LocalStorage
	filename string
	logger   *zap.Logger
}

// NewStudentFileRepository constructs a StudentFileRepository.
func NewStudentFileRepository(store *storage.LocalStorage, filename string, logger *zap.Logger) *StudentFileRepository {
	if filename == "" {
		filename = DefaultStudentsFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentFileRepository{storage: store, filename: filename, logger: logger}
}

// LoadAll reads the collection file. A missing or unparseable file yields an empty collection.
func (r *StudentFileRepository) LoadAll(ctx context.Context) []models.StudentRecord {
	data, err := r.storage.Read(r.filename)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("student file unreadable, treating as empty", zap.String("file", r.filename), zap.Error(err))
		}
		return []models.StudentRecord{}
	}

	var records []models.StudentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		r.logger.Warn("student file malformed, treating as empty", zap.String("file", r.filename), zap.Error(err))
		return []models.StudentRecord{}
	}
	if records == nil {
		return []models.StudentRecord{}
	}
	r.adoptLegacyIDs(data, records)
	return records
}

// adoptLegacyIDs fills StudentID from an older "id" key on entries that lack one.
func (r *StudentFileRepository) adoptLegacyIDs(data []byte, records []models.StudentRecord) {
	var legacy []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &legacy); err != nil || len(legacy) != len(records) {
		return
	}
	for i := range records {
		if records[i].StudentID == "" && legacy[i].ID != "" {
			records[i].StudentID = legacy[i].ID
		}
	}
}

// SaveAll replaces the collection file with records, indented with four spaces.
func (r *StudentFileRepository) SaveAll(ctx context.Context, records []models.StudentRecord) error {
	if records == nil {
		records = []models.StudentRecord{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode students: %w", err)
	}
	if err := r.storage.Save(r.filename, data); err != nil {
		return fmt.Errorf("save students: %w", err)
	}
	return nil
}
