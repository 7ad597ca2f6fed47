package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"student-chatter/internal/interpreter"
	"student-chatter/internal/storage"
)

func newTestServer(t *testing.T) *StudentsMCPServer {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "students.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewStudentsMCPServer(interpreter.New(store, store, store, nil), store)
}

func resultText(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func command(t *testing.T, s *StudentsMCPServer, text, actor string) *mcp.CallToolResultFor[any] {
	t.Helper()
	res, err := s.Command(context.Background(), nil, &mcp.CallToolParamsFor[StudentCommandParams]{
		Arguments: StudentCommandParams{Command: text, Actor: actor},
	})
	require.NoError(t, err)
	return res
}

func TestCommandTool(t *testing.T) {
	s := newTestServer(t)

	res := command(t, s, "add student Alice 20 A", "registrar")
	require.False(t, res.IsError)
	require.Equal(t, "✅ Student Alice added successfully with ID 1.", resultText(t, res))

	res = command(t, s, "   ", "")
	require.True(t, res.IsError)
}

func TestListAndCounts(t *testing.T) {
	s := newTestServer(t)
	command(t, s, "add student Alice 20 A", "")
	command(t, s, "add student Bob 19 B", "")
	command(t, s, "add student Carol 21 a", "")

	res, err := s.List(context.Background(), nil, &mcp.CallToolParamsFor[StudentListParams]{Arguments: StudentListParams{Grade: "A"}})
	require.NoError(t, err)
	var students []storage.Student
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &students))
	require.Len(t, students, 2)
	require.Equal(t, "Carol", students[1].Name)

	res, err = s.GradeCounts(context.Background(), nil, &mcp.CallToolParamsFor[GradeCountsParams]{})
	require.NoError(t, err)
	var counts map[string]int
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &counts))
	require.Equal(t, map[string]int{"A": 1, "B": 1, "a": 1}, counts)
}

func TestEmptyResults(t *testing.T) {
	s := newTestServer(t)

	res, err := s.List(context.Background(), nil, &mcp.CallToolParamsFor[StudentListParams]{})
	require.NoError(t, err)
	require.Equal(t, "[]", resultText(t, res))

	res, err = s.GradeCounts(context.Background(), nil, &mcp.CallToolParamsFor[GradeCountsParams]{})
	require.NoError(t, err)
	require.Equal(t, "No students found for report.", resultText(t, res))
}

func TestAuditLogTool(t *testing.T) {
	s := newTestServer(t)
	command(t, s, "add student Alice 20 A", "registrar")
	command(t, s, "add student Bob 19 B", "")
	command(t, s, "delete student 1", "registrar")

	res, err := s.AuditLog(context.Background(), nil, &mcp.CallToolParamsFor[AuditLogParams]{Arguments: AuditLogParams{Limit: 1}})
	require.NoError(t, err)
	var entries []auditView
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, storage.ActionDelete, entries[0].Action)
	require.Equal(t, int64(1), *entries[0].TargetID)

	res, err = s.AuditLog(context.Background(), nil, &mcp.CallToolParamsFor[AuditLogParams]{})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &entries))
	require.Len(t, entries, 2)
}
