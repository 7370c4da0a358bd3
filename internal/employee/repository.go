package employee

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const employeeColumns = `employee_id, name, department, salary, to_char(joining_date, 'YYYY-MM-DD'), skills`

// Repository stores employees in Postgres. Every mutation is a single
// statement; the unique index on employee_id backs the duplicate check.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, e Employee) (Employee, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Employee{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	if e.Skills == nil {
		e.Skills = []string{}
	}
	skills, err := json.Marshal(e.Skills)
	if err != nil {
		return Employee{}, fmt.Errorf("encode skills: %w", err)
	}

	var insertedID string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO employees (id, employee_id, name, department, salary, joining_date, skills, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $8)
		ON CONFLICT (employee_id) DO NOTHING
		RETURNING id
	`, id.String(), e.EmployeeID, e.Name, e.Department, e.Salary, e.JoiningDate, string(skills), time.Now().UTC()).Scan(&insertedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return Employee{}, ErrAlreadyExists
		}
		return Employee{}, storageError("insert employee", err)
	}

	return e, nil
}

func (r *Repository) Get(ctx context.Context, employeeID string) (Employee, error) {
	e, err := scanEmployee(r.db.QueryRowContext(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE employee_id = $1
	`, employeeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, storageError("query employee", err)
	}

	return e, nil
}

func (r *Repository) Update(ctx context.Context, employeeID string, u Update) (Employee, error) {
	var skills any
	if u.Skills != nil {
		encoded, err := json.Marshal(u.Skills)
		if err != nil {
			return Employee{}, fmt.Errorf("encode skills: %w", err)
		}
		skills = string(encoded)
	}

	e, err := scanEmployee(r.db.QueryRowContext(ctx, `
		UPDATE employees
		SET name = COALESCE($2, name),
			department = COALESCE($3, department),
			salary = COALESCE($4, salary),
			joining_date = COALESCE($5::date, joining_date),
			skills = COALESCE($6::jsonb, skills),
			updated_at = $7
		WHERE employee_id = $1
		RETURNING `+employeeColumns,
		employeeID, optional(u.Name), optional(u.Department), optional(u.Salary), optional(u.JoiningDate), skills, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, storageError("update employee", err)
	}

	return e, nil
}

func (r *Repository) Delete(ctx context.Context, employeeID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE employee_id = $1`, employeeID)
	if err != nil {
		return storageError("delete employee", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storageError("rows affected", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// List returns one page of a department, newest joiners first.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]Employee, error) {
	q = q.normalized()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE department = $1
		ORDER BY joining_date DESC, employee_id ASC
		OFFSET $2
		LIMIT $3
	`, q.Department, q.Skip, q.Limit)
	if err != nil {
		return nil, storageError("query employees", err)
	}

	return collectEmployees(rows)
}

// AverageSalaryByDepartment yields at most one row; none when the department is empty.
func (r *Repository) AverageSalaryByDepartment(ctx context.Context, department string) ([]DepartmentSalary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT department, AVG(salary)::float8
		FROM employees
		WHERE department = $1
		GROUP BY department
	`, department)
	if err != nil {
		return nil, storageError("query average salary", err)
	}
	defer rows.Close()

	result := make([]DepartmentSalary, 0, 1)
	for rows.Next() {
		var ds DepartmentSalary
		if err := rows.Scan(&ds.Department, &ds.AvgSalary); err != nil {
			return nil, storageError("scan average salary", err)
		}
		result = append(result, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate average salary", err)
	}

	return result, nil
}

// SearchBySkill matches whole skill entries, case-sensitively.
func (r *Repository) SearchBySkill(ctx context.Context, skill string) ([]Employee, error) {
	needle, err := json.Marshal([]string{skill})
	if err != nil {
		return nil, fmt.Errorf("encode skill: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+employeeColumns+`
		FROM employees
		WHERE skills @> $1::jsonb
		ORDER BY employee_id ASC
	`, string(needle))
	if err != nil {
		return nil, storageError("query employees by skill", err)
	}

	return collectEmployees(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var e Employee
	var skills []byte
	if err := row.Scan(&e.EmployeeID, &e.Name, &e.Department, &e.Salary, &e.JoiningDate, &skills); err != nil {
		return Employee{}, err
	}

	e.Skills = []string{}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &e.Skills); err != nil {
			return Employee{}, fmt.Errorf("decode skills: %w", err)
		}
	}

	return e, nil
}

func collectEmployees(rows *sql.Rows) ([]Employee, error) {
	defer rows.Close()

	employees := make([]Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, storageError("scan employee", err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("iterate employees", err)
	}

	return employees, nil
}

func optional[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
