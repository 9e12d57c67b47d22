package recordstore

import "github.com/noah-isme/sma-enrollment/internal/models"

// FindIndex locates probe by matching first name, last name, email, phone and date of birth.
// When no record matches all five it falls back to the first record with the same email.
func FindIndex(records []models.StudentRecord, probe models.StudentRecord) int {
	for i, r := range records {
		if r.FirstName == probe.FirstName &&
			r.LastName == probe.LastName &&
			r.Email == probe.Email &&
			r.Phone == probe.Phone &&
			r.DateOfBirth == probe.DateOfBirth {
			return i
		}
	}
	for i, r := range records {
		if r.Email == probe.Email {
			return i
		}
	}
	return NotFound
}

// IndexByStudentID returns the position of the record carrying id.
func IndexByStudentID(records []models.StudentRecord, id string) int {
	if id == "" {
		return NotFound
	}
	for i, r := range records {
		if r.StudentID == id {
			return i
		}
	}
	return NotFound
}
