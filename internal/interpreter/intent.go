package interpreter

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the classified purpose of an utterance.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentHelp          Intent = "help"
	IntentAddStudent    Intent = "add_student"
	IntentListStudents  Intent = "all_students"
	IntentGetStudent    Intent = "get_student"
	IntentDeleteStudent Intent = "delete_student"
	IntentUpdateStudent Intent = "update_student"
	IntentTotalStudents Intent = "total_students"
	IntentGrades        Intent = "grades"
	IntentReport        Intent = "report"
	IntentExit          Intent = "exit"
	IntentStudentInfo   Intent = "student_info"
	IntentUnknown       Intent = "unknown"
)

// Mutating reports whether the intent changes the record store.
func (i Intent) Mutating() bool {
	return i == IntentAddStudent || i == IntentUpdateStudent || i == IntentDeleteStudent
}

var (
	greetingKeywords = []string{"hello", "hi", "hey", "greetings"}
	helpKeywords     = []string{"help", "what can you do", "commands", "how do you work"}
	addKeywords      = []string{"add student"}
	listKeywords     = []string{"show all students", "list all students", "all students"}
	totalKeywords    = []string{"how many students", "total students", "number of students"}
	gradeKeywords    = []string{"what grades", "grade levels", "available grades"}
	reportKeywords   = []string{"report", "count", "per grade", "export", "download"}
	exitKeywords     = []string{"exit", "quit", "goodbye"}
	infoKeywords     = []string{"tell me about", "information about", "details of"}

	reportCountKeywords  = []string{"count", "per grade"}
	reportExportKeywords = []string{"export", "download"}
)

type matcher struct {
	intent Intent
	match  func(lower string) bool
}

// classification is evaluated top to bottom and the first match wins, so an
// utterance with several trigger phrases resolves to the earliest category.
// Reordering entries changes which command runs.
var classification = []matcher{
	{IntentGreeting, containsAny(greetingKeywords)},
	{IntentHelp, containsAny(helpKeywords)},
	{IntentAddStudent, containsAny(addKeywords)},
	{IntentListStudents, containsAny(listKeywords)},
	{IntentGetStudent, hasPrefix("get student")},
	{IntentDeleteStudent, hasPrefix("delete student")},
	{IntentUpdateStudent, hasPrefix("update student")},
	{IntentTotalStudents, containsAny(totalKeywords)},
	{IntentGrades, containsAny(gradeKeywords)},
	{IntentReport, containsAny(reportKeywords)},
	{IntentExit, containsAny(exitKeywords)},
	{IntentStudentInfo, containsAny(infoKeywords)},
}

// Classify maps an utterance to its intent. Matching is literal substring or
// prefix matching on the lower-cased, trimmed text.
func Classify(utterance string) Intent {
	lower := normalize(utterance)
	for _, m := range classification {
		if m.match(lower) {
			return m.intent
		}
	}
	return IntentUnknown
}

// Intents lists the categories in evaluation order, fallback last.
func Intents() []Intent {
	out := make([]Intent, 0, len(classification)+1)
	for _, m := range classification {
		out = append(out, m.intent)
	}
	return append(out, IntentUnknown)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(keywords []string) func(string) bool {
	return func(lower string) bool {
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
		return false
	}
}

func hasPrefix(prefix string) func(string) bool {
	return func(lower string) bool { return strings.HasPrefix(lower, prefix) }
}

var (
	digitsRe    = regexp.MustCompile(`\d+`)
	addRe       = regexp.MustCompile(`(?i)add student\s+(.+?)\s+(\d+)\s+(\w+)\s*$`)
	updateRe    = regexp.MustCompile(`(?i)^update student\s+(\d+)\s+(.+?)\s+(\d+)\s+(\w+)\s*$`)
	infoRe      = regexp.MustCompile(`(?i)(?:tell me about|information about|details of)(.*)`)
	infoTrimSet = " \t?!.,:;\"'"
)

// extractID returns the first run of digits in s.
func extractID(s string) (int64, bool) {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type studentArgs struct {
	name  string
	age   int
	grade string
}

func parseAdd(raw string) (studentArgs, bool) {
	m := addRe.FindStringSubmatch(raw)
	if m == nil {
		return studentArgs{}, false
	}
	age, err := strconv.Atoi(m[2])
	if err != nil {
		return studentArgs{}, false
	}
	return studentArgs{name: strings.TrimSpace(m[1]), age: age, grade: m[3]}, true
}

func parseUpdate(raw string) (int64, studentArgs, bool) {
	m := updateRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, studentArgs{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, studentArgs{}, false
	}
	age, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, studentArgs{}, false
	}
	return id, studentArgs{name: strings.TrimSpace(m[2]), age: age, grade: m[4]}, true
}

// infoSubject returns the text following the first info keyword.
func infoSubject(raw string) string {
	m := infoRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.Trim(m[1], infoTrimSet)
}

// WellFormedAdd reports whether an add command carries a name, an age and a grade.
func WellFormedAdd(utterance string) bool {
	_, ok := parseAdd(strings.TrimSpace(utterance))
	return ok
}
