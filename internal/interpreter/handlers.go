package interpreter

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"student-chatter/internal/report"
	"student-chatter/internal/storage"
)

const (
	storageFailureText = "⚠️ Something went wrong while accessing the student database. Please try again later."
	addUsageText       = "❌ Please provide the student's name, age, and grade (e.g., 'add student John 20 A')."
	updateUsageText    = "❌ Format: 'update student 1 John 22 B'."
	invalidIDText      = "Please provide a valid student ID."
	unknownReportText  = "❌ Unknown report command. Try 'show student count per grade' or 'export database'."
	farewellText       = "You have logged out successfully. Goodbye!"
	unknownText        = "❌ I didn't understand that. Say 'help' for available commands."
	helpText           = "Here are the available commands:\n" +
		"- Add a student: 'Add student <name> <age> <grade>'\n" +
		"- View all students: 'Show all students'\n" +
		"- Get student by ID: 'Get student <id>'\n" +
		"- Delete a student: 'Delete student <id>'\n" +
		"- Update student info: 'Update student <id> <name> <age> <grade>'\n" +
		"- Look up a student by name: 'Tell me about <name>'\n" +
		"- Get total students: 'How many students'\n" +
		"- Get available grades: 'What grades are available?'\n" +
		"- Show student count per grade: 'Show student count per grade'\n" +
		"- Export database to CSV: 'Export database'\n" +
		"- Exit: 'Exit'"
)

var greetings = []string{
	"Hello! How can I assist you today?",
	"Hi! I'm your student database assistant. How can I help you?",
	"Greetings! Ask me anything about students.",
	"Hey! Ready to manage your student data? Let me know what you need.",
}

func (i *Interpreter) greet(_ context.Context, req request) (string, error) {
	if req.actor.Known() {
		return fmt.Sprintf("Hello %s, how can I assist you today?", req.actor), nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.lower))
	return greetings[h.Sum32()%uint32(len(greetings))], nil
}

func (i *Interpreter) help(context.Context, request) (string, error) {
	return helpText, nil
}

func (i *Interpreter) addStudent(ctx context.Context, req request) (string, error) {
	args, ok := parseAdd(req.raw)
	if !ok {
		return addUsageText, nil
	}
	id, err := i.students.CreateStudent(ctx, args.name, args.age, args.grade)
	if storage.IsValidation(err) {
		return addUsageText, nil
	}
	if err != nil {
		return "", err
	}
	if err := i.auditMutation(ctx, req.actor, storage.ActionInsert, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Student %s added successfully with ID %d.", args.name, id), nil
}

func (i *Interpreter) listStudents(ctx context.Context, _ request) (string, error) {
	students, err := i.students.ListStudents(ctx)
	if err != nil {
		return "", err
	}
	if len(students) == 0 {
		return "No students found.", nil
	}
	parts := make([]string, 0, len(students))
	for _, s := range students {
		parts = append(parts, FormatStudent(s))
	}
	return strings.Join(parts, "\n\n"), nil
}

func (i *Interpreter) getStudent(ctx context.Context, req request) (string, error) {
	id, ok := extractID(req.raw)
	if !ok {
		return invalidIDText, nil
	}
	s, err := i.students.GetStudent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundText(id), nil
	}
	if err != nil {
		return "", err
	}
	return FormatStudent(s), nil
}

// deleteStudent reports a missing id as not found and writes no audit entry.
func (i *Interpreter) deleteStudent(ctx context.Context, req request) (string, error) {
	id, ok := extractID(req.raw)
	if !ok {
		return "Please provide a valid student ID to delete.", nil
	}
	err := i.students.DeleteStudent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundText(id), nil
	}
	if err != nil {
		return "", err
	}
	if err := i.auditMutation(ctx, req.actor, storage.ActionDelete, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Student with ID %d deleted successfully.", id), nil
}

func (i *Interpreter) updateStudent(ctx context.Context, req request) (string, error) {
	id, args, ok := parseUpdate(req.raw)
	if !ok {
		return updateUsageText, nil
	}
	err := i.students.UpdateStudent(ctx, storage.Student{ID: id, Name: args.name, Age: args.age, Grade: args.grade})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return notFoundText(id), nil
	case storage.IsValidation(err):
		return updateUsageText, nil
	case err != nil:
		return "", err
	}
	if err := i.auditMutation(ctx, req.actor, storage.ActionUpdate, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Student with ID %d updated successfully.", id), nil
}

func (i *Interpreter) totalStudents(ctx context.Context, _ request) (string, error) {
	students, err := i.students.ListStudents(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("There are %d students in the database.", len(students)), nil
}

func (i *Interpreter) availableGrades(ctx context.Context, _ request) (string, error) {
	grades, err := i.students.DistinctGrades(ctx)
	if err != nil {
		return "", err
	}
	if len(grades) == 0 {
		return "No grades found.", nil
	}
	return "Available grades: " + strings.Join(grades, ", "), nil
}

func (i *Interpreter) gradeReport(ctx context.Context, req request) (string, error) {
	switch {
	case containsAny(reportCountKeywords)(req.lower):
		counts, err := i.students.CountByGrade(ctx)
		if err != nil {
			return "", err
		}
		if len(counts) == 0 {
			return "No students found for report.", nil
		}
		return "📊 Student count per grade:\n" + report.FormatCounts(counts), nil
	case containsAny(reportExportKeywords)(req.lower):
		students, err := i.students.ListStudents(ctx)
		if err != nil {
			return "", err
		}
		if len(students) == 0 {
			return "No students to export.", nil
		}
		dest, err := i.exporter.Export(ctx, report.Table(students))
		if err != nil {
			return "", fmt.Errorf("export snapshot: %w", err)
		}
		return fmt.Sprintf("✅ Student database exported successfully as %s.", dest), nil
	default:
		return unknownReportText, nil
	}
}

func (i *Interpreter) exit(context.Context, request) (string, error) {
	return farewellText, nil
}

func (i *Interpreter) studentInfo(ctx context.Context, req request) (string, error) {
	name := infoSubject(req.raw)
	if name == "" {
		return "Please tell me which student you mean (e.g., 'tell me about John').", nil
	}
	s, err := i.students.GetStudentByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Sprintf("I couldn't find a student named %s.", name), nil
	}
	if err != nil {
		return "", err
	}
	return FormatStudent(s), nil
}

func (i *Interpreter) unknown(context.Context, request) (string, error) {
	return unknownText, nil
}

func notFoundText(id int64) string {
	return fmt.Sprintf("❌ Student with ID %d not found.", id)
}

// FormatStudent renders one record as the multi-line block used in replies.
func FormatStudent(s storage.Student) string {
	return fmt.Sprintf("ID: %d\nName: %s\nAge: %d\nGrade: %s", s.ID, s.Name, s.Age, s.Grade)
}
