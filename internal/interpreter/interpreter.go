// Package interpreter turns free-text commands into student record
// operations. Every call is recorded in the chat log; mutations by a known
// actor are also written to the audit log.
package interpreter

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"student-chatter/internal/report"
	"student-chatter/internal/storage"
)

// Actor identifies who issued an utterance. The zero value is anonymous.
type Actor string

// Anonymous is an actor without a session identity.
const Anonymous Actor = ""

// Known reports whether the actor carries an identity that can be audited.
func (a Actor) Known() bool { return strings.TrimSpace(string(a)) != "" }

// String returns the chat-log name of the actor.
func (a Actor) String() string {
	if !a.Known() {
		return storage.GuestActor
	}
	return strings.TrimSpace(string(a))
}

// Reply is the outcome of one interpreted utterance.
type Reply struct {
	Intent Intent
	Text   string
}

type handlerFunc func(ctx context.Context, req request) (string, error)

type request struct {
	raw   string
	lower string
	actor Actor
}

// Interpreter holds no state between calls beyond its collaborators.
type Interpreter struct {
	students storage.StudentStore
	audit    storage.AuditLog
	chats    storage.Recorder
	exporter report.Exporter
	handlers map[Intent]handlerFunc
}

// New wires an interpreter. A nil exporter writes report.DefaultExportName in
// the working directory.
func New(students storage.StudentStore, audit storage.AuditLog, chats storage.Recorder, exporter report.Exporter) *Interpreter {
	if exporter == nil {
		exporter = report.CSVExporter{}
	}
	i := &Interpreter{
		students: students,
		audit:    audit,
		chats:    chats,
		exporter: exporter,
	}
	i.handlers = map[Intent]handlerFunc{
		IntentGreeting:      i.greet,
		IntentHelp:          i.help,
		IntentAddStudent:    i.addStudent,
		IntentListStudents:  i.listStudents,
		IntentGetStudent:    i.getStudent,
		IntentDeleteStudent: i.deleteStudent,
		IntentUpdateStudent: i.updateStudent,
		IntentTotalStudents: i.totalStudents,
		IntentGrades:        i.availableGrades,
		IntentReport:        i.gradeReport,
		IntentExit:          i.exit,
		IntentStudentInfo:   i.studentInfo,
		IntentUnknown:       i.unknown,
	}
	return i
}

// Interpret classifies the utterance, runs the matching command and records
// the exchange. Malformed input and missing records come back as plain
// replies; only storage failures produce an error, in which case the reply
// carries a generic message and the exchange is still logged when possible.
// A logged mutation is not undone if recording the chat fails afterwards.
func (i *Interpreter) Interpret(ctx context.Context, utterance string, actor Actor) (Reply, error) {
	intent := Classify(utterance)
	req := request{raw: strings.TrimSpace(utterance), lower: normalize(utterance), actor: actor}

	text, err := i.handlers[intent](ctx, req)
	if err != nil {
		log.Error().Err(err).Str("intent", string(intent)).Str("actor", actor.String()).Msg("command failed")
		reply := Reply{Intent: intent, Text: storageFailureText}
		if chatErr := i.record(ctx, utterance, reply.Text, actor); chatErr != nil {
			log.Warn().Err(chatErr).Msg("failed to record chat after command failure")
		}
		return reply, fmt.Errorf("interpret %s: %w", intent, err)
	}

	reply := Reply{Intent: intent, Text: text}
	if err := i.record(ctx, utterance, text, actor); err != nil {
		return reply, fmt.Errorf("record chat: %w", err)
	}
	log.Debug().Str("intent", string(intent)).Bool("mutating", intent.Mutating()).Str("actor", actor.String()).Msg("command handled")
	return reply, nil
}

func (i *Interpreter) record(ctx context.Context, utterance, response string, actor Actor) error {
	return i.chats.AppendInteraction(ctx, storage.Interaction{
		Actor:     actor.String(),
		Utterance: utterance,
		Response:  response,
	})
}

// auditMutation writes an audit entry for known actors only.
func (i *Interpreter) auditMutation(ctx context.Context, actor Actor, action storage.Action, id int64) error {
	if !actor.Known() {
		return nil
	}
	return i.audit.AppendAudit(ctx, storage.AuditEntry{
		Actor:    actor.String(),
		Action:   action,
		TargetID: &id,
	})
}
