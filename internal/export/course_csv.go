package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"course-studio/internal/domain"
)

// courseHeader is the export column order. Keep it stable; downstream
// imports match columns by position.
var courseHeader = []string{
	"COURSE_ID",
	"TITLE",
	"DESCRIPTION",
	"MEDIA_URL",
	"INSTRUCTOR_ID",
	"DURATION",
	"START_DATE",
	"ENROLLMENT_LIMIT",
}

// WriteCourseCSV writes courses in the export format, one row per course.
func WriteCourseCSV(w io.Writer, courses []domain.Course) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(courseHeader); err != nil {
		return err
	}
	for _, c := range courses {
		if err := cw.Write(toRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCourseCSVFile writes the export to path, creating parent dirs.
func WriteCourseCSVFile(path string, courses []domain.Course) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := WriteCourseCSV(f, courses); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return f.Close()
}

func toRow(c domain.Course) []string {
	return []string{
		c.ID.String(),                    // COURSE_ID
		oneLine(c.Title),                 // TITLE
		oneLine(c.Description),           // DESCRIPTION
		strings.TrimSpace(c.MediaURL),    // MEDIA_URL
		c.InstructorID,                   // INSTRUCTOR_ID
		opaqueOrEmpty(c.Duration),        // DURATION
		strings.TrimSpace(c.StartDate),   // START_DATE
		opaqueOrEmpty(c.EnrollmentLimit), // ENROLLMENT_LIMIT
	}
}

// opaqueOrEmpty renders a pass-through value; absent and zero values are
// left blank.
func opaqueOrEmpty(v any) string {
	if !domain.Present(v) {
		return ""
	}
	if s, ok := v.(string); ok {
		return oneLine(s)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return oneLine(string(b))
}

// oneLine flattens newlines so each course stays on one physical row.
func oneLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
