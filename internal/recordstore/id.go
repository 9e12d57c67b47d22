package recordstore

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/noah-isme/sma-enrollment/internal/models"
)

// IDPrefix starts every generated student id.
const IDPrefix = "SID-"

var studentIDPattern = regexp.MustCompile(`^SID-(\d{4,})$`)

// GenerateNextID returns the id following the highest well-formed SID in records.
// Ids that do not look like SID-dddd are ignored.
func GenerateNextID(records []models.StudentRecord) string {
	highest := 0
	for _, r := range records {
		m := studentIDPattern.FindStringSubmatch(r.StudentID)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", IDPrefix, highest+1)
}
