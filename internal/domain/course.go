package domain

import (
	"encoding/json"
	"strings"
)

// Navigation targets used by the course screens.
const (
	RouteInstructorCourses = "/instructor/courses"
)

// Course is the record edited by the course form and exchanged with the
// Courses API. Inbound JSON is the backend's camelCase shape; outbound
// payloads are built by the courses client (PascalCase).
type Course struct {
	ID           CourseID `json:"courseId,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	MediaURL     string   `json:"mediaUrl,omitempty"`
	InstructorID string   `json:"instructorId,omitempty"`

	// forwarded as-is when present; numbers decode as float64
	Duration        any    `json:"duration,omitempty"`
	StartDate       string `json:"startDate,omitempty"`
	EnrollmentLimit any    `json:"enrollmentLimit,omitempty"`
}

// UnmarshalJSON accepts instructorId as a JSON string or number.
func (c *Course) UnmarshalJSON(b []byte) error {
	type plain Course
	aux := struct {
		*plain
		InstructorID looseString `json:"instructorId,omitempty"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.InstructorID = string(aux.InstructorID)
	return nil
}

// CourseID is the backend-assigned identifier. The API may send it as a
// JSON number or a string.
type CourseID string

func (id *CourseID) UnmarshalJSON(b []byte) error {
	s, err := decodeLoose(b)
	if err != nil {
		return err
	}
	*id = CourseID(s)
	return nil
}

func (id CourseID) String() string { return string(id) }

type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	v, err := decodeLoose(b)
	if err != nil {
		return err
	}
	*s = looseString(v)
	return nil
}

// decodeLoose reads a JSON string, number or null as a trimmed string.
func decodeLoose(b []byte) (string, error) {
	if len(b) == 0 || string(b) == "null" {
		return "", nil
	}

	// string: "42" / "b3c1..."
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}

	// number: 42
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// Present reports whether an opaque optional value should be sent. Absent,
// null, zero, false and empty values are not.
func Present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case int32:
		return x != 0
	case json.Number:
		return x != "" && x != "0"
	default:
		return true
	}
}
