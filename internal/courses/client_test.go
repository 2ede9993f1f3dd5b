package courses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"course-studio/internal/domain"
	"course-studio/internal/httpx"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest is what the fake backend saw.
type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Header: r.Header.Clone(), Body: body})
	f.mu.Unlock()
	r.Body = io.NopCloser(bytes.NewReader(body))
	f.handler(w, r)
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *fakeAPI, *bytes.Buffer) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	c := New(srv.URL+"/api/", "tok-123", zerolog.New(&logs))
	return c, api, &logs
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestNew(t *testing.T) {
	c := New("https://lms.test/api/", "tok", zerolog.Nop())

	assert.Equal(t, "https://lms.test/api", c.BaseURL)
	assert.Equal(t, "tok", c.Token)
	assert.NotNil(t, c.HTTP)
	assert.Equal(t, 30*time.Second, c.HTTP.Timeout)
	assert.Equal(t, 8, c.Workers)
}

func TestToPayloadOmitsAbsentOptionalFields(t *testing.T) {
	b, err := json.Marshal(ToPayload(domain.Course{
		Title:        "Intro to Go",
		Description:  "Basics",
		InstructorID: "inst-1",
	}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, map[string]any{
		"Title":        "Intro to Go",
		"Description":  "Basics",
		"InstructorId": "inst-1",
	}, got)
}

func TestToPayloadForwardsOptionalFields(t *testing.T) {
	b, err := json.Marshal(ToPayload(domain.Course{
		ID:              "9",
		Title:           "T",
		Description:     "D",
		InstructorID:    "inst-1",
		MediaURL:        "https://cdn.test/v.mp4",
		Duration:        6,
		StartDate:       "2026-11-01",
		EnrollmentLimit: 25,
	}))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, "https://cdn.test/v.mp4", got["MediaUrl"])
	assert.Equal(t, float64(6), got["Duration"])
	assert.Equal(t, "2026-11-01", got["StartDate"])
	assert.Equal(t, float64(25), got["EnrollmentLimit"])
	assert.NotContains(t, got, "CourseId")
	assert.NotContains(t, got, "title")
}

func TestToPayloadOmitsZeroOpaqueFields(t *testing.T) {
	b, err := json.Marshal(ToPayload(domain.Course{
		Title:           "T",
		Description:     "D",
		InstructorID:    "7",
		Duration:        float64(0),
		EnrollmentLimit: false,
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Title":"T","Description":"D","InstructorId":"7"}`, string(b))
}

func TestGetCourseLenientShapes(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"courseId":8,"title":"Go","description":"d","instructorId":7,"duration":"6 weeks","enrollmentLimit":20}`)
	})

	got, err := c.GetCourse(context.Background(), "8")
	require.NoError(t, err)
	assert.Equal(t, "7", got.InstructorID)
	assert.Equal(t, "6 weeks", got.Duration)
	assert.Equal(t, float64(20), got.EnrollmentLimit)

	b, err := json.Marshal(ToPayload(*got))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Title":"Go","Description":"d","InstructorId":"7","Duration":"6 weeks","EnrollmentLimit":20}`, string(b))
}

func TestListCourses(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"courseId":1,"title":"A","description":"a"},{"courseId":"2","title":"B","description":"b","mediaUrl":"https://m.test"}]`)
	})

	got, err := c.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.CourseID("1"), got[0].ID)
	assert.Equal(t, "https://m.test", got[1].MediaURL)

	req := api.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/Courses", req.Path)
	assert.Equal(t, "Bearer tok-123", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))
}

func TestGetCourse(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"courseId":7,"title":"Go","description":"Learn Go","instructorId":"inst-1"}`)
	})

	got, err := c.GetCourse(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Go", got.Title)
	assert.Equal(t, "inst-1", got.InstructorID)
	assert.Equal(t, "/api/Courses/7", api.last().Path)
}

func TestGetCourseEscapesID(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := c.GetCourse(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/api/Courses/a%2Fb", api.last().Path)
}

func TestGetCourseEmptyID(t *testing.T) {
	c := New("https://lms.test", "", zerolog.Nop())
	_, err := c.GetCourse(context.Background(), "")
	assert.Error(t, err)
}

func TestCreateCourseSendsPascalCase(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"courseId":11,"title":"New","description":"Fresh","instructorId":"inst-1"}`)
	})

	created, err := c.CreateCourse(context.Background(), domain.Course{
		Title:        "New",
		Description:  "Fresh",
		InstructorID: "inst-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CourseID("11"), created.ID)

	req := api.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/Courses", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"Title":"New","Description":"Fresh","InstructorId":"inst-1"}`, string(req.Body))
}

func TestUpdateCourse(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"courseId":5,"title":"Renamed","description":"Same"}`)
	})

	updated, err := c.UpdateCourse(context.Background(), "5", domain.Course{
		ID:           "5",
		Title:        "Renamed",
		Description:  "Same",
		InstructorID: "inst-1",
		MediaURL:     "https://m.test/x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	req := api.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/Courses/5", req.Path)
	assert.JSONEq(t, `{"Title":"Renamed","Description":"Same","InstructorId":"inst-1","MediaUrl":"https://m.test/x"}`, string(req.Body))
}

func TestUpdateCourseNoContent(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	updated, err := c.UpdateCourse(context.Background(), "5", domain.Course{Title: "T", Description: "D"})
	require.NoError(t, err)
	assert.Equal(t, domain.Course{}, *updated)
}

func TestDeleteCourse(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"message":"Course deleted"}`)
	})

	ack, err := c.DeleteCourse(context.Background(), "3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Course deleted"}`, string(ack))
	assert.Equal(t, http.MethodDelete, api.last().Method)
	assert.Equal(t, "/api/Courses/3", api.last().Path)
}

func TestFailurePropagatesHTTPErrorAndLogs(t *testing.T) {
	c, api, logs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"Database unavailable"}`)
	})

	_, err := c.CreateCourse(context.Background(), domain.Course{Title: "T", Description: "D", InstructorID: "i"})
	require.Error(t, err)

	var herr *httpx.HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusInternalServerError, herr.StatusCode)
	assert.Equal(t, "Database unavailable", httpx.ServerMessage(err))

	// no retries
	assert.Len(t, api.requests, 1)

	out := logs.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "error creating course")
	assert.Contains(t, out, `"status":500`)
	assert.Contains(t, out, `"server_message":"Database unavailable"`)
}

func TestTransportFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, "", zerolog.Nop())
	_, err := c.ListCourses(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "courses: list:"))
	assert.Equal(t, 0, httpx.StatusCode(err))
}

func TestGetCourses(t *testing.T) {
	c, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/Courses/")
		if id == "404" {
			writeJSON(w, http.StatusNotFound, `{"message":"Course not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"courseId":"`+id+`","title":"Course `+id+`","description":"d"}`)
	})

	got, errs := c.GetCourses(context.Background(), []domain.CourseID{"1", "404", "3"})
	require.Len(t, got, 3)
	require.Len(t, errs, 1)
	assert.Equal(t, http.StatusNotFound, httpx.StatusCode(errs[0]))

	assert.Equal(t, "Course 1", got[0].Title)
	assert.Equal(t, domain.Course{}, got[1])
	assert.Equal(t, "Course 3", got[2].Title)
}

func TestDeleteCourses(t *testing.T) {
	c, api, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	errs := c.DeleteCourses(context.Background(), []domain.CourseID{"1", "2", "3"})
	assert.Empty(t, errs)

	paths := make([]string, 0, len(api.requests))
	for _, r := range api.requests {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.Path)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"/api/Courses/1", "/api/Courses/2", "/api/Courses/3"}, paths)
}
