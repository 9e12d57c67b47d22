package recordstore

import (
	"strings"

	"github.com/noah-isme/sma-enrollment/internal/models"
)

// Filter keeps the records matching both the status selection and the search text, in order.
//
// A status of "All" (any case) or "" disables the status predicate; any other status is
// compared case-insensitively with the effective status. Search text is trimmed,
// lower-cased and matched as a substring of the full name, email, phone, student id or
// guardian name.
func Filter(records []models.StudentRecord, text, status string) []models.StudentRecord {
	query := strings.ToLower(strings.TrimSpace(text))
	wantStatus := strings.TrimSpace(status)
	if strings.EqualFold(wantStatus, models.StatusAll) {
		wantStatus = ""
	}

	out := make([]models.StudentRecord, 0, len(records))
	for _, r := range records {
		if wantStatus != "" && !strings.EqualFold(string(r.EffectiveStatus()), wantStatus) {
			continue
		}
		if query != "" && !Matches(r, query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Matches reports whether a lower-cased query occurs in any searchable field of r.
func Matches(r models.StudentRecord, query string) bool {
	fields := []string{r.FullName(), r.Email, r.Phone, r.StudentID}
	if r.Guardian != nil {
		fields = append(fields, r.Guardian.Name)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}
