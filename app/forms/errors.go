package forms

import (
	"sort"
	"strings"
)

// NonFieldErrors collects messages that do not belong to a single field.
const NonFieldErrors = "__all__"

// Errors maps a form field name to its validation messages.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

// orNil returns e as an error only when it holds messages.
func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
