package form

// View is what a renderer needs to draw the form at a point in time.
type View struct {
	// Loading means show a spinner instead of the form.
	Loading bool

	Heading     string
	Subtitle    string
	SubmitLabel string

	// SubmitDisabled is set while a submit is in flight.
	SubmitDisabled bool

	Fields Fields
	Errors map[Field]string
}

// View returns the current render model. ok is false once the form has
// navigated away and nothing should be drawn.
func (c *Controller) View() (v View, ok bool) {
	if _, gone := c.NavigatedTo(); gone {
		return View{}, false
	}

	c.mu.Lock()
	loading, submitting := c.initialLoading, c.submitting
	c.mu.Unlock()

	v = View{
		Loading:        loading,
		SubmitDisabled: submitting,
		Fields:         c.Fields(),
		Errors:         c.Errors(),
	}

	edit := c.IsEditMode()
	switch {
	case edit:
		v.Heading = "Edit Course"
		v.Subtitle = "Update your course information"
	default:
		v.Heading = "Create New Course"
		v.Subtitle = "Fill in the details to create a new course"
	}

	switch {
	case submitting && edit:
		v.SubmitLabel = "Updating..."
	case submitting:
		v.SubmitLabel = "Creating..."
	case edit:
		v.SubmitLabel = "Update Course"
	default:
		v.SubmitLabel = "Create Course"
	}
	return v, true
}
