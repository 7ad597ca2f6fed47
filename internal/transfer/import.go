// Package transfer bulk-loads students from CSV by replaying each row as an
// "add student" command, so imported rows are audited and logged like typed ones.
package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"student-chatter/internal/interpreter"
)

var (
	// ErrBadRow marks a row without a usable name, age and grade.
	ErrBadRow = errors.New("malformed row")
	// ErrMisrouted marks a row whose command would be taken for another
	// intent, for example a name containing "hi".
	ErrMisrouted = errors.New("row would not be read as an add command")
)

var columns = []string{"name", "age", "grade"}

type commandInterpreter interface {
	Interpret(ctx context.Context, utterance string, actor interpreter.Actor) (interpreter.Reply, error)
}

// RowResult is the outcome of one data row. Line is 1-based and counts the header.
type RowResult struct {
	Line  int
	Name  string
	Reply string
	Err   error
}

func (r RowResult) Added() bool { return r.Err == nil }

type Summary struct {
	Rows []RowResult
}

func (s Summary) Added() int {
	n := 0
	for _, r := range s.Rows {
		if r.Added() {
			n++
		}
	}
	return n
}

func (s Summary) Failed() int { return len(s.Rows) - s.Added() }

// Import reads a CSV with a name,age,grade header (any column order, extra
// columns ignored) and adds every row through interp. A bad row is reported
// in the summary and does not stop later rows; only an unreadable header or
// a cancelled context returns an error. Rows the CSV reader cannot parse are
// reported without being sent.
func Import(ctx context.Context, r io.Reader, interp commandInterpreter, actor interpreter.Actor) (Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Summary{}, fmt.Errorf("read header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			sum.Rows = append(sum.Rows, RowResult{Line: perr.StartLine, Err: fmt.Errorf("%w: %v", ErrBadRow, perr.Err)})
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		sum.Rows = append(sum.Rows, importRow(ctx, interp, actor, line, rec, idx))
	}
	log.Info().Int("added", sum.Added()).Int("failed", sum.Failed()).Msg("csv import finished")
	return sum, nil
}

func importRow(ctx context.Context, interp commandInterpreter, actor interpreter.Actor, line int, rec []string, idx map[string]int) RowResult {
	field := func(col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	res := RowResult{Line: line, Name: field("name")}

	// Every row is sent, so rejected rows still show up in the chat log.
	utterance := fmt.Sprintf("add student %s %s %s", res.Name, field("age"), field("grade"))
	reply, err := interp.Interpret(ctx, utterance, actor)
	res.Reply = reply.Text
	switch {
	case err != nil:
		log.Warn().Err(err).Int("line", line).Msg("import row failed")
		res.Err = err
	case reply.Intent != interpreter.IntentAddStudent:
		res.Err = fmt.Errorf("%w: read as %s", ErrMisrouted, reply.Intent)
	case !interpreter.WellFormedAdd(utterance):
		res.Err = ErrBadRow
	}
	return res
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(columns))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("header is missing column %q", c)
		}
	}
	return idx, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
