package form

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Field names a form input. The values match the inputs' name attributes.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldMediaURL    Field = "mediaUrl"
)

// Validation messages.
const (
	MsgTitleRequired       = "Course title is required"
	MsgDescriptionRequired = "Course description is required"
	MsgInvalidURL          = "Please enter a valid URL"
)

// Fields are the user-editable inputs of the course form.
type Fields struct {
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
	MediaURL    string `form:"mediaUrl" validate:"omitempty,url"`
}

var messages = map[Field]map[string]string{
	FieldTitle:       {"required": MsgTitleRequired},
	FieldDescription: {"required": MsgDescriptionRequired},
	FieldMediaURL:    {"url": MsgInvalidURL},
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func fieldValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("form")
		})
	})
	return validate
}

// validateFields returns one message per invalid field. Values are checked
// after trimming surrounding whitespace; a blank title or description is
// missing, while a media URL made only of whitespace is invalid.
func validateFields(f Fields) map[Field]string {
	check := Fields{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		MediaURL:    strings.TrimSpace(f.MediaURL),
	}

	out := map[Field]string{}
	if f.MediaURL != "" && check.MediaURL == "" {
		out[FieldMediaURL] = MsgInvalidURL
	}

	err := fieldValidator().Struct(check)
	if err == nil {
		return out
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// only reachable on programmer error (non-struct input)
		out[FieldTitle] = err.Error()
		return out
	}
	for _, fe := range verrs {
		field := Field(fe.Field())
		if _, seen := out[field]; seen {
			continue
		}
		msg := messages[field][fe.Tag()]
		if msg == "" {
			msg = fe.Error()
		}
		out[field] = msg
	}
	return out
}
