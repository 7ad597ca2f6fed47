package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"student-chatter/internal/interpreter"
	"student-chatter/internal/report"
	"student-chatter/internal/storage"
	"student-chatter/internal/transfer"
)

const tsLayout = "2006-01-02 15:04:05"

func chatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant interactively until 'exit'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Student assistant. Say 'help' for commands, 'exit' to leave.")

			sc := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "You: ")
				if !sc.Scan() {
					fmt.Fprintln(out)
					return sc.Err()
				}
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				// A failed command already carries a user-facing reply.
				reply, _ := a.interp.Interpret(ctx, line, a.actorValue())
				fmt.Fprintf(out, "Assistant: %s\n", reply.Text)
				if reply.Intent == interpreter.IntentExit {
					return nil
				}
			}
		},
	}
}

func sayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "say <command...>",
		Short: "Run one plain-language command",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			reply, err := a.interp.Interpret(cmd.Context(), strings.Join(args, " "), a.actorValue())
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return err
		},
	}
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Add students from a CSV file with a name,age,grade header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				r = f
			}
			sum, err := transfer.Import(cmd.Context(), r, a.interp, a.actorValue())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, row := range sum.Rows {
				if !row.Added() {
					fmt.Fprintf(out, "line %d (%s): %v\n", row.Line, row.Name, row.Err)
				}
			}
			fmt.Fprintf(out, "Imported %d students, %d rows failed.\n", sum.Added(), sum.Failed())
			return nil
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var toStdout bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all students to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.close()
			students, err := a.store.ListStudents(ctx)
			if err != nil {
				return err
			}
			rows := report.Table(students)
			if toStdout {
				return report.WriteCSV(cmd.OutOrStdout(), rows)
			}
			dest, err := report.CSVExporter{Dir: a.exportDir}.Export(ctx, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d students to %s\n", len(students), dest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write CSV to standard output instead of the export directory")
	return cmd
}

func studentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Inspect and edit student records",
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List all students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			students, err := a.store.ListStudents(cmd.Context())
			if err != nil {
				return err
			}
			return printStudents(cmd.OutOrStdout(), students, asJSON)
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	var (
		searchName string
		searchID   int64
	)
	search := &cobra.Command{
		Use:   "search",
		Short: "Find students by part of the name and/or by ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			students, err := a.store.ListStudents(cmd.Context())
			if err != nil {
				return err
			}
			return printStudents(cmd.OutOrStdout(), filterStudents(students, searchName, searchID), asJSON)
		},
	}
	search.Flags().StringVar(&searchName, "name", "", "Case-insensitive part of the name")
	search.Flags().Int64Var(&searchID, "id", 0, "Exact student ID (0 = any)")
	search.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	var (
		deleteGrade string
		deleteAll   bool
	)
	bulkDelete := &cobra.Command{
		Use:   "delete",
		Short: "Delete every student of a grade, or all students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deleteGrade == "" && !deleteAll {
				return errors.New("pass --grade or --all")
			}
			if deleteGrade != "" && deleteAll {
				return errors.New("--grade and --all are mutually exclusive")
			}
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.close()
			students, err := a.store.ListStudents(ctx)
			if err != nil {
				return err
			}
			deleted := 0
			for _, s := range students {
				if !deleteAll && s.Grade != deleteGrade {
					continue
				}
				// Each delete is replayed as a command so it lands in the audit log.
				reply, err := a.interp.Interpret(ctx, fmt.Sprintf("delete student %d", s.ID), a.actorValue())
				if err != nil {
					return fmt.Errorf("delete student %d: %w", s.ID, err)
				}
				log.Debug().Int64("id", s.ID).Str("reply", reply.Text).Msg("bulk delete")
				deleted++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d students.\n", deleted)
			return nil
		},
	}
	bulkDelete.Flags().StringVar(&deleteGrade, "grade", "", "Delete students with exactly this grade")
	bulkDelete.Flags().BoolVar(&deleteAll, "all", false, "Delete all students")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			s, err := a.store.GetStudent(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), interpreter.FormatStudent(s))
			return nil
		},
	}

	var (
		name, grade string
		age         int
	)
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change selected fields of a student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.open(ctx); err != nil {
				return err
			}
			defer a.close()
			current, err := a.store.GetStudent(ctx, id)
			if err != nil {
				return err
			}
			var p storage.Patch
			if cmd.Flags().Changed("name") {
				p.Name = &name
			}
			if cmd.Flags().Changed("age") {
				p.Age = &age
			}
			if cmd.Flags().Changed("grade") {
				p.Grade = &grade
			}
			next, changed := current.Apply(p)
			if !changed {
				return errors.New("nothing to update: pass --name, --age or --grade")
			}
			if err := next.Validate(); err != nil {
				return err
			}
			// Going through the interpreter keeps the change in the audit and chat logs.
			utterance := fmt.Sprintf("update student %d %s %d %s", next.ID, next.Name, next.Age, next.Grade)
			if intent := interpreter.Classify(utterance); intent != interpreter.IntentUpdateStudent {
				return fmt.Errorf("update would be read as %s, edit the record another way", intent)
			}
			reply, err := a.interp.Interpret(ctx, utterance, a.actorValue())
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return err
		},
	}
	update.Flags().StringVar(&name, "name", "", "New name")
	update.Flags().IntVar(&age, "age", 0, "New age")
	update.Flags().StringVar(&grade, "grade", "", "New grade")

	cmd.AddCommand(list, search, get, update, bulkDelete)
	return cmd
}

func auditCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recorded changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			entries, err := a.store.LoadAudit(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "The audit log is empty.")
				return nil
			}
			for _, e := range head(entries, limit) {
				target := "-"
				if e.TargetID != nil {
					target = strconv.FormatInt(*e.TargetID, 10)
				}
				fmt.Fprintf(out, "[%s] %s %s %s\n", formatTS(e.Timestamp), e.Actor, e.Action, target)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n entries (0 = all)")
	return cmd
}

func chatsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Show saved conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			defer a.close()
			chats, err := a.store.LoadInteractions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(chats) == 0 {
				fmt.Fprintln(out, "No saved chats.")
				return nil
			}
			for _, c := range head(chats, limit) {
				fmt.Fprintf(out, "[%s] %s: %s\nAssistant: %s\n\n", formatTS(c.Timestamp), c.Actor, c.Utterance, c.Response)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n chats (0 = all)")
	return cmd
}

func printStudents(out io.Writer, students []storage.Student, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(students)
	}
	if len(students) == 0 {
		fmt.Fprintln(out, "No students found.")
		return nil
	}
	for _, s := range students {
		fmt.Fprintf(out, "%d\t%s\t%d\t%s\n", s.ID, s.Name, s.Age, s.Grade)
	}
	return nil
}

func filterStudents(students []storage.Student, name string, id int64) []storage.Student {
	needle := strings.ToLower(name)
	out := make([]storage.Student, 0, len(students))
	for _, s := range students {
		if needle != "" && !strings.Contains(strings.ToLower(s.Name), needle) {
			continue
		}
		if id > 0 && s.ID != id {
			continue
		}
		out = append(out, s)
	}
	return out
}

func head[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid student id %q", s)
	}
	return id, nil
}

func formatTS(ts time.Time) string { return ts.UTC().Format(tsLayout) }
