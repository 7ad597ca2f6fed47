package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "students.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateThenGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cases := []Student{
		{Name: "Alice", Age: 20, Grade: "A"},
		{Name: "Mary Jane", Age: 17, Grade: "B2"},
		{Name: "Bob", Age: 0, Grade: "C"},
	}
	for _, c := range cases {
		id, err := s.CreateStudent(ctx, c.Name, c.Age, c.Grade)
		require.NoError(t, err)
		got, err := s.GetStudent(ctx, id)
		require.NoError(t, err)
		c.ID = id
		require.Equal(t, c, got)
	}
}

func TestCreateValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateStudent(ctx, "  ", 20, "A")
	require.True(t, IsValidation(err))
	_, err = s.CreateStudent(ctx, "Alice", -1, "A")
	require.True(t, IsValidation(err))
	_, err = s.CreateStudent(ctx, "Alice", 20, "")
	require.True(t, IsValidation(err))

	all, err := s.ListStudents(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestDeleteIsPermanentAndIDsAreNotReused(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateStudent(ctx, "Alice", 20, "A")
	require.NoError(t, err)
	require.NoError(t, s.DeleteStudent(ctx, id))

	for i := 0; i < 2; i++ {
		_, err = s.GetStudent(ctx, id)
		require.ErrorIs(t, err, ErrNotFound)
	}
	require.ErrorIs(t, s.DeleteStudent(ctx, id), ErrNotFound)

	next, err := s.CreateStudent(ctx, "Bob", 21, "B")
	require.NoError(t, err)
	require.Greater(t, next, id)
}

func TestUpdateStudent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateStudent(ctx, "Alice", 20, "A")
	require.NoError(t, err)
	require.NoError(t, s.UpdateStudent(ctx, Student{ID: id, Name: "Alicia", Age: 21, Grade: "B"}))

	got, err := s.GetStudent(ctx, id)
	require.NoError(t, err)
	require.Equal(t, Student{ID: id, Name: "Alicia", Age: 21, Grade: "B"}, got)

	// unchanged values still count as a matched row
	require.NoError(t, s.UpdateStudent(ctx, got))
	require.ErrorIs(t, s.UpdateStudent(ctx, Student{ID: 999, Name: "X", Age: 1, Grade: "A"}), ErrNotFound)
}

func TestGetStudentByNameReturnsFirstMatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.CreateStudent(ctx, "Sam", 19, "A")
	require.NoError(t, err)
	_, err = s.CreateStudent(ctx, "Sam", 22, "C")
	require.NoError(t, err)

	got, err := s.GetStudentByName(ctx, "Sam")
	require.NoError(t, err)
	require.Equal(t, first, got.ID)

	_, err = s.GetStudentByName(ctx, "Nobody")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestCountByGradeMatchesList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, g := range []string{"A", "B", "A", "C", "A"} {
		id, err := s.CreateStudent(ctx, "student "+g, 18, g)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, s.DeleteStudent(ctx, ids[3]))

	counts, err := s.CountByGrade(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"A": 3, "B": 1}, counts)

	all, err := s.ListStudents(ctx)
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	require.Equal(t, len(all), total)

	g1, err := s.DistinctGrades(ctx)
	require.NoError(t, err)
	g2, err := s.DistinctGrades(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, g1)
	require.Equal(t, g1, g2)
}

func TestAuditLogNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	one, two := int64(1), int64(2)
	require.NoError(t, s.AppendAudit(ctx, AuditEntry{Actor: "admin", Action: ActionInsert, TargetID: &one}))
	require.NoError(t, s.AppendAudit(ctx, AuditEntry{Actor: "admin", Action: ActionDelete, TargetID: &two}))
	require.NoError(t, s.AppendAudit(ctx, AuditEntry{Actor: "root", Action: ActionUpdate}))
	require.True(t, IsValidation(s.AppendAudit(ctx, AuditEntry{Action: ActionInsert})))

	entries, err := s.LoadAudit(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, ActionUpdate, entries[0].Action)
	require.Nil(t, entries[0].TargetID)
	require.Equal(t, ActionDelete, entries[1].Action)
	require.Equal(t, int64(2), *entries[1].TargetID)
	require.Equal(t, ActionInsert, entries[2].Action)
	for i := 1; i < len(entries); i++ {
		require.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp))
	}
}

func TestInteractionsDefaultActor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendInteraction(ctx, Interaction{Utterance: "hi", Response: "hello"}))
	require.NoError(t, s.AppendInteraction(ctx, Interaction{Actor: "alice", Utterance: "help", Response: "commands"}))

	chats, err := s.LoadInteractions(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, "alice", chats[0].Actor)
	require.Equal(t, GuestActor, chats[1].Actor)
	require.Equal(t, "hi", chats[1].Utterance)
	require.False(t, chats[1].Timestamp.IsZero())
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.sqlite")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	id, err := s.CreateStudent(ctx, "Alice", 20, "A")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, err := s.GetStudent(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)
}

func TestStorageErrorAfterClose(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListStudents(context.Background())
	var se *StorageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "list students", se.Op)
}
