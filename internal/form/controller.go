package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"course-studio/internal/domain"

	"github.com/rs/zerolog"
)

// User-facing messages.
const (
	MsgLoadFailed = "Failed to load course data"
	MsgCreated    = "Course created successfully"
	MsgUpdated    = "Course updated successfully"
	MsgSaveFailed = "Failed to save course. Please try again."
)

var (
	// ErrInvalid is returned by Submit when validation fails. Field messages
	// are available from Errors.
	ErrInvalid = errors.New("form: validation failed")

	// ErrBusy is returned by Submit while a load or another submit is in flight.
	ErrBusy = errors.New("form: busy")

	// ErrUnauthenticated is returned by Submit when there is no user to own
	// the course.
	ErrUnauthenticated = errors.New("form: no authenticated user")
)

// CourseService is the subset of the courses client the form needs.
type CourseService interface {
	GetCourse(ctx context.Context, id domain.CourseID) (*domain.Course, error)
	CreateCourse(ctx context.Context, c domain.Course) (*domain.Course, error)
	UpdateCourse(ctx context.Context, id domain.CourseID, c domain.Course) (*domain.Course, error)
}

// Notifier shows transient messages (toasts).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Navigator moves the user to another screen.
type Navigator interface {
	Navigate(path string)
}

// Identity is the authenticated user; its ID becomes the course instructor.
type Identity interface {
	ID() string
}

// Deps are the collaborators of a Controller. Nil Notifier and Navigator
// are replaced by no-ops.
type Deps struct {
	Courses   CourseService
	Notifier  Notifier
	Navigator Navigator
	User      Identity
	Log       zerolog.Logger
}

// Controller holds the state of one create/edit course form.
// It is safe for concurrent use; at most one load and one submit run at a time.
type Controller struct {
	deps     Deps
	courseID domain.CourseID

	mu             sync.Mutex
	fields         Fields
	errors         map[Field]string
	initialLoading bool
	submitting     bool
	navigatedTo    string
}

// New builds a form. A non-empty courseID puts it in edit mode, in which
// case it reports InitialLoading until Mount finishes.
func New(deps Deps, courseID domain.CourseID) *Controller {
	deps.Log = deps.Log.With().Str("component", "course_form").Logger()
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Navigator == nil {
		deps.Navigator = nopNavigator{}
	}
	return &Controller{
		deps:           deps,
		courseID:       courseID,
		errors:         map[Field]string{},
		initialLoading: courseID != "",
	}
}

// IsEditMode reports whether the form edits an existing course.
func (c *Controller) IsEditMode() bool { return c.courseID != "" }

// CourseID is the course being edited, or "" in create mode.
func (c *Controller) CourseID() domain.CourseID { return c.courseID }

// InitialLoading is true in edit mode until Mount has finished.
func (c *Controller) InitialLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialLoading
}

// Submitting is true while a Submit is in flight.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

func (c *Controller) Fields() Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fields
}

// Errors returns a copy of the current field messages.
func (c *Controller) Errors() map[Field]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Field]string, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// NavigatedTo reports where the form sent the user, if anywhere.
func (c *Controller) NavigatedTo() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navigatedTo, c.navigatedTo != ""
}

// Set is the change handler for a single field.
func (c *Controller) Set(name Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case FieldTitle:
		c.fields.Title = value
	case FieldDescription:
		c.fields.Description = value
	case FieldMediaURL:
		c.fields.MediaURL = value
	default:
		return fmt.Errorf("form: unknown field %q", name)
	}
	return nil
}

// Mount loads the course in edit mode. On failure the user is notified and
// sent back to the course list. Create mode is a no-op.
func (c *Controller) Mount(ctx context.Context) error {
	if !c.IsEditMode() {
		return nil
	}

	c.mu.Lock()
	c.initialLoading = true
	c.mu.Unlock()

	course, err := c.deps.Courses.GetCourse(ctx, c.courseID)
	if err != nil {
		c.mu.Lock()
		c.initialLoading = false
		c.mu.Unlock()

		c.deps.Log.Error().Err(err).Str("course_id", c.courseID.String()).Msg("error fetching course")
		c.deps.Notifier.Error(MsgLoadFailed)
		c.navigate(domain.RouteInstructorCourses)
		return err
	}

	c.mu.Lock()
	c.initialLoading = false
	c.fields = Fields{
		Title:       course.Title,
		Description: course.Description,
		MediaURL:    course.MediaURL,
	}
	c.mu.Unlock()
	return nil
}

// Validate checks the current fields, replaces the message map and reports
// whether the form can be submitted.
func (c *Controller) Validate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *Controller) validateLocked() bool {
	c.errors = validateFields(c.fields)
	return len(c.errors) == 0
}

// Submit validates, then creates or updates the course owned by the current
// user. Field values are kept on failure.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.submitting || c.initialLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	if !c.validateLocked() {
		c.mu.Unlock()
		return ErrInvalid
	}
	c.submitting = true
	fields := c.fields
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	if c.deps.User == nil || strings.TrimSpace(c.deps.User.ID()) == "" {
		c.deps.Log.Error().Msg("course submission without an authenticated user")
		c.deps.Notifier.Error(MsgSaveFailed)
		return ErrUnauthenticated
	}

	course := domain.Course{
		Title:        fields.Title,
		Description:  fields.Description,
		MediaURL:     fields.MediaURL,
		InstructorID: c.deps.User.ID(),
	}

	var (
		err error
		msg string
	)
	if c.IsEditMode() {
		course.ID = c.courseID
		_, err = c.deps.Courses.UpdateCourse(ctx, c.courseID, course)
		msg = MsgUpdated
	} else {
		_, err = c.deps.Courses.CreateCourse(ctx, course)
		msg = MsgCreated
	}
	if err != nil {
		c.deps.Log.Error().Err(err).Msg("course submission error")
		c.deps.Notifier.Error(failureMessage(err))
		return err
	}

	c.deps.Notifier.Success(msg)
	c.navigate(domain.RouteInstructorCourses)
	return nil
}

// navigate records the target and hands it to the Navigator. Must be
// called without c.mu held.
func (c *Controller) navigate(path string) {
	c.mu.Lock()
	c.navigatedTo = path
	c.mu.Unlock()
	c.deps.Navigator.Navigate(path)
}

type serverMessager interface {
	ServerMessage() string
}

// failureMessage prefers the "message" the server sent over the generic one.
func failureMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) {
		if m := strings.TrimSpace(sm.ServerMessage()); m != "" {
			return m
		}
	}
	return MsgSaveFailed
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

type nopNavigator struct{}

func (nopNavigator) Navigate(string) {}
