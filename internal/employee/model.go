package employee

import "time"

const (
	DefaultListLimit = 5
	MaxListLimit     = 100
	DateLayout       = "2006-01-02"
)

type Employee struct {
	EmployeeID  string   `json:"employee_id"`
	Name        string   `json:"name"`
	Department  string   `json:"department"`
	Salary      int64    `json:"salary"`
	JoiningDate string   `json:"joining_date"`
	Skills      []string `json:"skills"`
}

// Update is a partial update: nil fields are left untouched. An empty,
// non-nil Skills slice clears the skills.
type Update struct {
	Name        *string  `json:"name"`
	Department  *string  `json:"department"`
	Salary      *int64   `json:"salary"`
	JoiningDate *string  `json:"joining_date"`
	Skills      []string `json:"skills"`
}

type ListQuery struct {
	Department string
	Skip       int
	Limit      int
}

type DepartmentSalary struct {
	Department string  `json:"department"`
	AvgSalary  float64 `json:"avg_salary"`
}

func (q ListQuery) normalized() ListQuery {
	if q.Skip < 0 {
		q.Skip = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	return q
}

func validDate(value string) bool {
	_, err := time.Parse(DateLayout, value)
	return err == nil
}
