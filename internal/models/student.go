package models

import "strings"

// StudentStatus is the approval state of an enrollment submission.
type StudentStatus string

const (
	StatusPending  StudentStatus = "pending"
	StatusApproved StudentStatus = "approved"
	StatusDeclined StudentStatus = "declined"
)

// StatusAll is the status filter value that disables status filtering.
const StatusAll = "All"

// Statuses lists every valid status in display order.
var Statuses = []StudentStatus{StatusPending, StatusApproved, StatusDeclined}

// ParseStatus converts user input into a StudentStatus.
func ParseStatus(raw string) (StudentStatus, bool) {
	s := StudentStatus(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// Guardian holds the optional guardian section of the enrollment form.
type Guardian struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

// Academic holds the optional academic section of the enrollment form.
type Academic struct {
	PreviousSchool string `json:"previous_school"`
	Strand         string `json:"strand"`
	Semester       string `json:"semester"`
	SchoolYear     string `json:"school_year"`
}

// StudentRecord is one enrollment submission as persisted by the record store.
type StudentRecord struct {
	StudentID     string        `json:"student_id"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	DateOfBirth   string        `json:"date_of_birth"`
	Gender        string        `json:"gender"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Guardian      *Guardian     `json:"guardian"`
	Academic      *Academic     `json:"academic"`
	Status        StudentStatus `json:"status"`
	SubmittedBy   string        `json:"submitted_by"`
	SubmittedRole string        `json:"submitted_role"`
}

// EffectiveStatus treats an unset status as pending.
func (r StudentRecord) EffectiveStatus() StudentStatus {
	if r.Status == "" {
		return StatusPending
	}
	return r.Status
}

// FullName joins first and last name the way listings display it.
func (r StudentRecord) FullName() string {
	return r.FirstName + " " + r.LastName
}

// StudentFilter carries the search box text and the status dropdown value.
type StudentFilter struct {
	Query  string
	Status string
}

// StudentSummary counts records per status.
type StudentSummary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Declined int `json:"declined"`
}
