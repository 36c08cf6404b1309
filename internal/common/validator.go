package common

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

type ValidationError struct {
	Errors map[string]string
}

// Error renders the field errors sorted by field name so the message is stable.
func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Errors[field])
	}

	return strings.Join(parts, ", ")
}

type Validator struct {
	Errors map[string]string
}

func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

func (v *Validator) AddError(field, message string) {
	if _, ok := v.Errors[field]; !ok {
		v.Errors[field] = message
	}
}

func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// CheckStringLength counts runes, not bytes.
func (v *Validator) CheckStringLength(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func (v *Validator) Matches(s string, rx *regexp.Regexp) bool {
	return rx.MatchString(s)
}

func (v *Validator) ValidationError() error {
	return ValidationError{Errors: v.Errors}
}
