package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"student-chatter/internal/interpreter"
	"student-chatter/internal/report"
	"student-chatter/internal/storage"
)

// StudentCommandParams is a plain-language command for the assistant.
type StudentCommandParams struct {
	Command string `json:"command" mcp:"Command such as 'add student Alice 20 A' or 'show student count per grade'"`
	Actor   string `json:"actor,omitempty" mcp:"Name recorded in the audit log; empty means anonymous"`
}

type StudentListParams struct {
	Grade string `json:"grade,omitempty" mcp:"Only students with this grade"`
}

type GradeCountsParams struct{}

type AuditLogParams struct {
	Limit int `json:"limit,omitempty" mcp:"Maximum number of entries, newest first (default 20)"`
}

type commandInterpreter interface {
	Interpret(ctx context.Context, utterance string, actor interpreter.Actor) (interpreter.Reply, error)
}

type toolStore interface {
	storage.StudentStore
	storage.AuditLog
}

// StudentsMCPServer exposes the student database as MCP tools.
type StudentsMCPServer struct {
	interp commandInterpreter
	store  toolStore
}

func NewStudentsMCPServer(interp commandInterpreter, store toolStore) *StudentsMCPServer {
	return &StudentsMCPServer{interp: interp, store: store}
}

func (s *StudentsMCPServer) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "student_command",
		Description: "Runs a plain-language command against the student database and returns the assistant reply",
	}, s.Command)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "student_list",
		Description: "Lists student records as JSON, optionally filtered by grade",
	}, s.List)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "student_grade_counts",
		Description: "Returns the number of students per grade as JSON",
	}, s.GradeCounts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "student_audit_log",
		Description: "Returns recent changes to student records, newest first",
	}, s.AuditLog)
}

func (s *StudentsMCPServer) Command(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[StudentCommandParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments
	if strings.TrimSpace(args.Command) == "" {
		return errorResult("❌ command is required"), nil
	}
	log.Info().Str("actor", interpreter.Actor(args.Actor).String()).Str("command", args.Command).Msg("📝 MCP student command")

	reply, err := s.interp.Interpret(ctx, args.Command, interpreter.Actor(args.Actor))
	if err != nil {
		log.Error().Err(err).Msg("student command failed")
		return errorResult(reply.Text), nil
	}
	return textResult(reply.Text), nil
}

func (s *StudentsMCPServer) List(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[StudentListParams]) (*mcp.CallToolResultFor[any], error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list students failed")
		return errorResult("❌ Failed to list students"), nil
	}
	if g := strings.TrimSpace(params.Arguments.Grade); g != "" {
		filtered := students[:0]
		for _, st := range students {
			if strings.EqualFold(st.Grade, g) {
				filtered = append(filtered, st)
			}
		}
		students = filtered
	}
	if students == nil {
		students = []storage.Student{}
	}
	return jsonResult(students)
}

func (s *StudentsMCPServer) GradeCounts(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[GradeCountsParams]) (*mcp.CallToolResultFor[any], error) {
	counts, err := s.store.CountByGrade(ctx)
	if err != nil {
		log.Error().Err(err).Msg("count by grade failed")
		return errorResult("❌ Failed to count students per grade"), nil
	}
	if len(counts) == 0 {
		return textResult("No students found for report."), nil
	}
	res, err := jsonResult(counts)
	if err != nil {
		return nil, err
	}
	res.Content = append(res.Content, &mcp.TextContent{Text: report.FormatCounts(counts)})
	return res, nil
}

type auditView struct {
	Actor     string         `json:"actor"`
	Action    storage.Action `json:"action"`
	TargetID  *int64         `json:"target_id,omitempty"`
	Timestamp string         `json:"timestamp"`
}

func (s *StudentsMCPServer) AuditLog(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[AuditLogParams]) (*mcp.CallToolResultFor[any], error) {
	entries, err := s.store.LoadAudit(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load audit log failed")
		return errorResult("❌ Failed to load the audit log"), nil
	}
	limit := params.Arguments.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]auditView, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditView{
			Actor:     e.Actor,
			Action:    e.Action,
			TargetID:  e.TargetID,
			Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}
	return jsonResult(out)
}

func textResult(text string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResultFor[any] {
	res := textResult(text)
	res.IsError = true
	return res
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return textResult(string(data)), nil
}
