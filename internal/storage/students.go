package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

func (s *SQLiteStore) CreateStudent(ctx context.Context, name string, age int, grade string) (int64, error) {
	st := Student{Name: strings.TrimSpace(name), Age: age, Grade: strings.TrimSpace(grade)}
	if err := st.Validate(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO students (name, age, grade) VALUES (?, ?, ?)`,
		st.Name, st.Age, st.Grade)
	if err != nil {
		return 0, storageErr("insert student", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert student", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetStudent(ctx context.Context, id int64) (Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, age, grade FROM students WHERE id = ?`, id)
	return scanStudent(row, "get student")
}

// GetStudentByName returns the oldest record with exactly this name.
func (s *SQLiteStore) GetStudentByName(ctx context.Context, name string) (Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, age, grade FROM students WHERE name = ? ORDER BY id LIMIT 1`,
		strings.TrimSpace(name))
	return scanStudent(row, "get student by name")
}

func (s *SQLiteStore) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, age, grade FROM students ORDER BY id`)
	if err != nil {
		return nil, storageErr("list students", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Age, &st.Grade); err != nil {
			return nil, storageErr("scan student", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list students", err)
	}
	return out, nil
}

// UpdateStudent replaces name, age and grade of the record with st.ID.
func (s *SQLiteStore) UpdateStudent(ctx context.Context, st Student) error {
	st.Name = strings.TrimSpace(st.Name)
	st.Grade = strings.TrimSpace(st.Grade)
	if err := st.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET name = ?, age = ?, grade = ? WHERE id = ?`,
		st.Name, st.Age, st.Grade, st.ID)
	if err != nil {
		return storageErr("update student", err)
	}
	return requireAffected(res, "update student")
}

// DeleteStudent removes the row physically. Deleting a missing id is ErrNotFound.
func (s *SQLiteStore) DeleteStudent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return storageErr("delete student", err)
	}
	return requireAffected(res, "delete student")
}

func (s *SQLiteStore) DistinctGrades(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT grade FROM students ORDER BY grade`)
	if err != nil {
		return nil, storageErr("distinct grades", err)
	}
	defer func() { _ = rows.Close() }()

	var grades []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, storageErr("scan grade", err)
		}
		grades = append(grades, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("distinct grades", err)
	}
	return grades, nil
}

func (s *SQLiteStore) CountByGrade(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grade, COUNT(*) FROM students GROUP BY grade`)
	if err != nil {
		return nil, storageErr("count by grade", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			grade string
			n     int
		)
		if err := rows.Scan(&grade, &n); err != nil {
			return nil, storageErr("scan grade count", err)
		}
		counts[grade] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("count by grade", err)
	}
	return counts, nil
}

func scanStudent(row *sql.Row, op string) (Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.Name, &st.Age, &st.Grade)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, storageErr(op, err)
	}
	return st, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
