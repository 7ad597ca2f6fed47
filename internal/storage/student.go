package storage

import (
	"fmt"
	"strings"
)

// Student is a persisted student record. ID is assigned by the store.
type Student struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Grade string `json:"grade"`
}

// Patch holds a selective change; nil fields are left alone.
type Patch struct {
	Name  *string
	Age   *int
	Grade *string
}

// Apply returns a copy of s with the non-empty fields of p applied and
// whether anything was set.
func (s Student) Apply(p Patch) (Student, bool) {
	updated := false
	if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
		s.Name = strings.TrimSpace(*p.Name)
		updated = true
	}
	if p.Age != nil {
		s.Age = *p.Age
		updated = true
	}
	if p.Grade != nil && strings.TrimSpace(*p.Grade) != "" {
		s.Grade = strings.TrimSpace(*p.Grade)
		updated = true
	}
	return s, updated
}

// Validate checks the fields a store accepts.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if s.Age < 0 {
		return &ValidationError{Field: "age", Message: "must not be negative"}
	}
	if strings.TrimSpace(s.Grade) == "" {
		return &ValidationError{Field: "grade", Message: "must not be empty"}
	}
	return nil
}

func (s Student) String() string {
	return fmt.Sprintf("<Student(id=%d, name=%s, age=%d, grade=%s)>", s.ID, s.Name, s.Age, s.Grade)
}
