package transfer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"student-chatter/internal/interpreter"
	"student-chatter/internal/storage"
)

func newInterpreter(t *testing.T) (*interpreter.Interpreter, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "students.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return interpreter.New(store, store, store, nil), store
}

func TestImport(t *testing.T) {
	interp, store := newInterpreter(t)
	in := strings.Join([]string{
		"Grade,Name,Age,Notes",
		"A,Alice Smith,20,transfer",
		"B,Bob,nineteen,",
		",,,",
		"C,Chiara,21,",
		"B,Dan,22,",
		"A,Eve",
	}, "\n")

	sum, err := Import(context.Background(), strings.NewReader(in), interp, "registrar")
	require.NoError(t, err)
	require.Len(t, sum.Rows, 5)
	require.Equal(t, 2, sum.Added())
	require.Equal(t, 3, sum.Failed())

	require.True(t, sum.Rows[0].Added())
	require.Equal(t, 2, sum.Rows[0].Line)
	require.Equal(t, "✅ Student Alice Smith added successfully with ID 1.", sum.Rows[0].Reply)

	require.ErrorIs(t, sum.Rows[1].Err, ErrBadRow)
	require.Equal(t, 3, sum.Rows[1].Line)

	require.ErrorIs(t, sum.Rows[2].Err, ErrMisrouted)
	require.Equal(t, "Chiara", sum.Rows[2].Name)
	require.Equal(t, 5, sum.Rows[2].Line)
	require.Equal(t, "Hello registrar, how can I assist you today?", sum.Rows[2].Reply)

	require.True(t, sum.Rows[3].Added())
	require.ErrorIs(t, sum.Rows[4].Err, ErrBadRow)

	students, err := store.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Dan", students[1].Name)

	audits, err := store.LoadAudit(context.Background())
	require.NoError(t, err)
	require.Len(t, audits, 2)
	require.Equal(t, "registrar", audits[0].Actor)

	chats, err := store.LoadInteractions(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 5)
	require.Equal(t, "add student Chiara 21 C", chats[2].Utterance)
}

func TestImportHeaderErrors(t *testing.T) {
	interp, _ := newInterpreter(t)

	_, err := Import(context.Background(), strings.NewReader(""), interp, "")
	require.Error(t, err)

	_, err = Import(context.Background(), strings.NewReader("name,age\nAlice,20\n"), interp, "")
	require.ErrorContains(t, err, `"grade"`)
}

func TestImportBareQuoteDoesNotAbort(t *testing.T) {
	interp, _ := newInterpreter(t)
	in := "name,age,grade\nAl\"ice,20,A\nBob,19,B\n"

	sum, err := Import(context.Background(), strings.NewReader(in), interp, "")
	require.NoError(t, err)
	require.Len(t, sum.Rows, 2)
	require.ErrorIs(t, sum.Rows[0].Err, ErrBadRow)
	require.True(t, sum.Rows[1].Added())
}

type failingInterpreter struct{ calls int }

func (f *failingInterpreter) Interpret(context.Context, string, interpreter.Actor) (interpreter.Reply, error) {
	f.calls++
	return interpreter.Reply{Text: "⚠️ try later"}, errors.New("database is locked")
}

func TestImportStorageFailureContinues(t *testing.T) {
	fi := &failingInterpreter{}
	sum, err := Import(context.Background(), strings.NewReader("name,age,grade\nAlice,20,A\nBob,19,B\n"), fi, "")
	require.NoError(t, err)
	require.Equal(t, 2, fi.calls)
	require.Equal(t, 2, sum.Failed())
	require.Equal(t, "⚠️ try later", sum.Rows[1].Reply)
}

func TestImportCancelled(t *testing.T) {
	fi := &failingInterpreter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Import(ctx, strings.NewReader("name,age,grade\nAlice,20,A\n"), fi, "")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, fi.calls)
}
