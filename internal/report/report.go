// Package report derives aggregate and tabular views from a snapshot of
// student records. Functions here have no side effects.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"student-chatter/internal/storage"
)

// DefaultExportName is the file name used when a caller has no destination of its own.
const DefaultExportName = "student_database.csv"

// Header is the first row of every tabular export.
var Header = []string{"ID", "Name", "Age", "Grade"}

// GradeCounts returns how many students hold each grade. Only grades present
// in the snapshot appear.
func GradeCounts(students []storage.Student) map[string]int {
	counts := make(map[string]int)
	for _, s := range students {
		counts[s.Grade]++
	}
	return counts
}

// Table renders the snapshot as rows, header first.
func Table(students []storage.Student) [][]string {
	rows := make([][]string, 0, len(students)+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, s := range students {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			strconv.Itoa(s.Age),
			s.Grade,
		})
	}
	return rows
}

// WriteCSV writes rows as CSV.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// FormatCounts renders counts one "grade: n" line per grade, sorted by grade.
func FormatCounts(counts map[string]int) string {
	grades := make([]string, 0, len(counts))
	for g := range counts {
		grades = append(grades, g)
	}
	sort.Strings(grades)

	var b strings.Builder
	for i, g := range grades {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %d", g, counts[g])
	}
	return b.String()
}
