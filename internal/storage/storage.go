package storage

import (
	"context"
	"time"
)

// GuestActor is recorded for chat exchanges that carry no identity.
const GuestActor = "Guest"

// Action tags an audited mutation.
type Action string

const (
	ActionInsert Action = "insert_student"
	ActionUpdate Action = "update_student"
	ActionDelete Action = "delete_student"
)

// AuditEntry is one administrative mutation. Entries are never changed once written.
type AuditEntry struct {
	ID        int64
	Actor     string
	Action    Action
	TargetID  *int64
	Timestamp time.Time
}

// Interaction is a single exchange of a user and the assistant.
// Timestamp is assigned by the store on append.
type Interaction struct {
	ID        int64
	Timestamp time.Time
	Actor     string
	Utterance string
	Response  string
}

// StudentStore is the durable table of student records.
type StudentStore interface {
	CreateStudent(ctx context.Context, name string, age int, grade string) (int64, error)
	GetStudent(ctx context.Context, id int64) (Student, error)
	GetStudentByName(ctx context.Context, name string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) error
	DeleteStudent(ctx context.Context, id int64) error
	DistinctGrades(ctx context.Context) ([]string, error)
	CountByGrade(ctx context.Context) (map[string]int, error)
}

// AuditLog appends and lists audit entries, newest first.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	LoadAudit(ctx context.Context) ([]AuditEntry, error)
}

// Recorder abstracts persistence of interaction events.
// LoadInteractions returns the newest exchange first.
type Recorder interface {
	AppendInteraction(ctx context.Context, in Interaction) error
	LoadInteractions(ctx context.Context) ([]Interaction, error)
}
