package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-enrollment/internal/models"
)

// studentRow is the flattened table layout of a student record.
type studentRow struct {
	StudentID        string         `db:"student_id"`
	Position         int            `db:"position"`
	FirstName        string         `db:"first_name"`
	LastName         string         `db:"last_name"`
	DateOfBirth      string         `db:"date_of_birth"`
	Gender           string         `db:"gender"`
	Email            string         `db:"email"`
	Phone            string         `db:"phone"`
	GuardianName     sql.NullString `db:"guardian_name"`
	GuardianPhone    sql.NullString `db:"guardian_phone"`
	GuardianRelation sql.NullString `db:"guardian_relation"`
	PreviousSchool   sql.NullString `db:"previous_school"`
	Strand           sql.NullString `db:"strand"`
	Semester         sql.NullString `db:"semester"`
	SchoolYear       sql.NullString `db:"school_year"`
	Status           string         `db:"status"`
	SubmittedBy      string         `db:"submitted_by"`
	SubmittedRole    string         `db:"submitted_role"`
}

const (
	selectStudentsQuery = `SELECT student_id, position, first_name, last_name, date_of_birth, gender, email, phone,
        guardian_name, guardian_phone, guardian_relation, previous_school, strand, semester, school_year,
        status, submitted_by, submitted_role FROM students ORDER BY position ASC`
	deleteStudentsQuery = `DELETE FROM students`
	insertStudentQuery  = `INSERT INTO students (student_id, position, first_name, last_name, date_of_birth, gender, email, phone,
        guardian_name, guardian_phone, guardian_relation, previous_school, strand, semester, school_year,
        status, submitted_by, submitted_role)
        VALUES (:student_id, :position, :first_name, :last_name, :date_of_birth, :gender, :email, :phone,
        :guardian_name, :guardian_phone, :guardian_relation, :previous_school, :strand, :semester, :school_year,
        :status, :submitted_by, :submitted_role)`
)

// StudentRepository keeps the student collection in the students table.
type StudentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB, logger *zap.Logger) *StudentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentRepository{db: db, logger: logger}
}

// LoadAll scans the whole table in stored order. Query failures yield an empty collection.
func (r *StudentRepository) LoadAll(ctx context.Context) []models.StudentRecord {
	records, err := r.List(ctx)
	if err != nil {
		r.logger.Warn("student table unreadable, treating as empty", zap.Error(err))
		return []models.StudentRecord{}
	}
	return records
}

// List is LoadAll with the underlying error surfaced.
func (r *StudentRepository) List(ctx context.Context) ([]models.StudentRecord, error) {
	var rows []studentRow
	if err := r.db.SelectContext(ctx, &rows, selectStudentsQuery); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	records := make([]models.StudentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

// SaveAll deletes every row and reinserts records in order within one transaction.
func (r *StudentRepository) SaveAll(ctx context.Context, records []models.StudentRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save students: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, deleteStudentsQuery); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}
	for i, record := range records {
		row := newStudentRow(i, record)
		if _, err := tx.NamedExecContext(ctx, insertStudentQuery, row); err != nil {
			return fmt.Errorf("insert student %s: %w", record.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save students: %w", err)
	}
	return nil
}

func newStudentRow(position int, r models.StudentRecord) studentRow {
	row := studentRow{
		StudentID:     r.StudentID,
		Position:      position,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		DateOfBirth:   r.DateOfBirth,
		Gender:        r.Gender,
		Email:         r.Email,
		Phone:         r.Phone,
		Status:        string(r.Status),
		SubmittedBy:   r.SubmittedBy,
		SubmittedRole: r.SubmittedRole,
	}
	if g := r.Guardian; g != nil {
		row.GuardianName = nullString(g.Name)
		row.GuardianPhone = nullString(g.Phone)
		row.GuardianRelation = nullString(g.Relation)
	}
	if a := r.Academic; a != nil {
		row.PreviousSchool = nullString(a.PreviousSchool)
		row.Strand = nullString(a.Strand)
		row.Semester = nullString(a.Semester)
		row.SchoolYear = nullString(a.SchoolYear)
	}
	return row
}

func (row studentRow) toRecord() models.StudentRecord {
	record := models.StudentRecord{
		StudentID:     row.StudentID,
		FirstName:     row.FirstName,
		LastName:      row.LastName,
		DateOfBirth:   row.DateOfBirth,
		Gender:        row.Gender,
		Email:         row.Email,
		Phone:         row.Phone,
		Status:        models.StudentStatus(row.Status),
		SubmittedBy:   row.SubmittedBy,
		SubmittedRole: row.SubmittedRole,
	}
	if row.GuardianName.Valid || row.GuardianPhone.Valid || row.GuardianRelation.Valid {
		record.Guardian = &models.Guardian{
			Name:     row.GuardianName.String,
			Phone:    row.GuardianPhone.String,
			Relation: row.GuardianRelation.String,
		}
	}
	if row.PreviousSchool.Valid || row.Strand.Valid || row.Semester.Valid || row.SchoolYear.Valid {
		record.Academic = &models.Academic{
			PreviousSchool: row.PreviousSchool.String,
			Strand:         row.Strand.String,
			Semester:       row.Semester.String,
			SchoolYear:     row.SchoolYear.String,
		}
	}
	return record
}

// nullString marks a present sub-form field as non-NULL even when its value is empty.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}
