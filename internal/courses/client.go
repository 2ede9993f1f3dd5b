package courses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"course-studio/internal/concurrency"
	"course-studio/internal/domain"
	"course-studio/internal/httpx"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	contentTypeJSON = "application/json"
	acceptJSON      = contentTypeJSON

	coursesPath = "/Courses"
)

// Client talks to the Courses REST resource. Failures are logged and
// returned to the caller; nothing is retried.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Log     zerolog.Logger

	// Workers bounds GetCourses/DeleteCourses fan-out.
	Workers int
}

func New(baseURL, token string, log zerolog.Logger) *Client {
	tr := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout:   30 * time.Second,
			Transport: tr,
		},
		Log:     log.With().Str("component", "courses").Logger(),
		Workers: 8,
	}
}

// CoursePayload is the body POST/PUT /Courses expects. The backend binds
// PascalCase names; optional fields are left out rather than sent empty.
type CoursePayload struct {
	Title           string `json:"Title"`
	Description     string `json:"Description"`
	InstructorId    string `json:"InstructorId"`
	MediaUrl        string `json:"MediaUrl,omitempty"`
	Duration        any    `json:"Duration,omitempty"`
	StartDate       string `json:"StartDate,omitempty"`
	EnrollmentLimit any    `json:"EnrollmentLimit,omitempty"`
}

// ToPayload translates a course into the outbound wire shape.
func ToPayload(c domain.Course) CoursePayload {
	return CoursePayload{
		Title:           c.Title,
		Description:     c.Description,
		InstructorId:    c.InstructorID,
		MediaUrl:        c.MediaURL,
		Duration:        presentOrNil(c.Duration),
		StartDate:       c.StartDate,
		EnrollmentLimit: presentOrNil(c.EnrollmentLimit),
	}
}

func presentOrNil(v any) any {
	if !domain.Present(v) {
		return nil
	}
	return v
}

func (c *Client) ListCourses(ctx context.Context) ([]domain.Course, error) {
	var out []domain.Course
	if err := c.do(ctx, http.MethodGet, coursesPath, nil, &out); err != nil {
		c.logFailure(err, "error fetching courses")
		return nil, fmt.Errorf("courses: list: %w", err)
	}
	return out, nil
}

func (c *Client) GetCourse(ctx context.Context, id domain.CourseID) (*domain.Course, error) {
	if id == "" {
		return nil, errors.New("courses: get: empty course id")
	}

	var out domain.Course
	if err := c.do(ctx, http.MethodGet, coursePath(id), nil, &out); err != nil {
		c.logFailure(err, "error fetching course", "course_id", id.String())
		return nil, fmt.Errorf("courses: get %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) CreateCourse(ctx context.Context, course domain.Course) (*domain.Course, error) {
	payload := ToPayload(course)
	c.Log.Debug().Interface("payload", payload).Msg("sending course data to backend")

	var out domain.Course
	if err := c.do(ctx, http.MethodPost, coursesPath, payload, &out); err != nil {
		c.logFailure(err, "error creating course")
		return nil, fmt.Errorf("courses: create: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateCourse(ctx context.Context, id domain.CourseID, course domain.Course) (*domain.Course, error) {
	if id == "" {
		return nil, errors.New("courses: update: empty course id")
	}

	payload := ToPayload(course)
	c.Log.Debug().Str("course_id", id.String()).Interface("payload", payload).Msg("updating course")

	var out domain.Course
	if err := c.do(ctx, http.MethodPut, coursePath(id), payload, &out); err != nil {
		c.logFailure(err, "error updating course", "course_id", id.String())
		return nil, fmt.Errorf("courses: update %s: %w", id, err)
	}
	return &out, nil
}

// DeleteCourse removes a course. The acknowledgement body, if any, is
// returned raw.
func (c *Client) DeleteCourse(ctx context.Context, id domain.CourseID) (json.RawMessage, error) {
	if id == "" {
		return nil, errors.New("courses: delete: empty course id")
	}

	var ack json.RawMessage
	if err := c.do(ctx, http.MethodDelete, coursePath(id), nil, &ack); err != nil {
		c.logFailure(err, "error deleting course", "course_id", id.String())
		return nil, fmt.Errorf("courses: delete %s: %w", id, err)
	}
	return ack, nil
}

// GetCourses fetches several courses concurrently. The result keeps the
// order of ids; a failed fetch leaves a zero Course at its index.
func (c *Client) GetCourses(ctx context.Context, ids []domain.CourseID) ([]domain.Course, []error) {
	return concurrency.ProcessParallel(ctx, ids, concurrency.ParallelOptions{MaxWorkers: c.Workers},
		func(ctx context.Context, _ int, id domain.CourseID) (domain.Course, error) {
			course, err := c.GetCourse(ctx, id)
			if err != nil {
				return domain.Course{}, err
			}
			return *course, nil
		},
	)
}

// DeleteCourses deletes several courses concurrently and returns one error
// per failed id.
func (c *Client) DeleteCourses(ctx context.Context, ids []domain.CourseID) []error {
	return concurrency.ForEach(ctx, ids, concurrency.ParallelOptions{MaxWorkers: c.Workers},
		func(ctx context.Context, _ int, id domain.CourseID) error {
			_, err := c.DeleteCourse(ctx, id)
			return err
		},
	)
}

func coursePath(id domain.CourseID) string {
	return coursesPath + "/" + url.PathEscape(id.String())
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = b
	}

	requestID := uuid.NewString()
	return httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			var rd io.Reader
			if body != nil {
				rd = bytes.NewReader(body)
			}
			r, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
			if err != nil {
				return nil, err
			}
			if body != nil {
				r.Header.Set("Content-Type", contentTypeJSON)
			}
			r.Header.Set("Accept", acceptJSON)
			r.Header.Set("Accept-Encoding", httpx.AcceptEncoding)
			r.Header.Set("X-Request-ID", requestID)
			if c.Token != "" {
				r.Header.Set("Authorization", "Bearer "+c.Token)
			}
			return r, nil
		},
		out,
	)
}

// logFailure records status, status text and server body for HTTP errors,
// or just the error for transport failures.
func (c *Client) logFailure(err error, msg string, kv ...string) {
	ev := c.Log.Error().Err(err)
	for i := 0; i+1 < len(kv); i += 2 {
		ev = ev.Str(kv[i], kv[i+1])
	}

	var herr *httpx.HTTPError
	if errors.As(err, &herr) {
		ev = ev.
			Int("status", herr.StatusCode).
			Str("status_text", http.StatusText(herr.StatusCode)).
			Str("method", herr.Method).
			Str("url", herr.URL).
			Bytes("data", herr.Body)
		if m := herr.ServerMessage(); m != "" {
			ev = ev.Str("server_message", m)
		}
	}
	ev.Msg(msg)
}
