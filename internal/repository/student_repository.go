package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-erp-api/internal/models"
)

const studentAccountSelect = `SELECT s.roll_no, s.name, s.email, s.course_id, COALESCE(c.name, '') AS course_name,
c.fees_per_semester, s.current_semester, s.hostel_id, s.is_active
FROM students s LEFT JOIN courses c ON c.id = s.course_id`

// StudentRepository reads the billing view of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student account by roll number.
func (r *StudentRepository) FindByID(ctx context.Context, rollNo string) (*models.StudentAccount, error) {
	query := studentAccountSelect + ` WHERE s.roll_no = $1 LIMIT 1`
	var student models.StudentAccount
	if err := r.db.GetContext(ctx, &student, query, rollNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// ListForDemand returns active students enrolled in the courses at the given semester.
func (r *StudentRepository) ListForDemand(ctx context.Context, courseIDs []string, semester int) ([]models.StudentAccount, error) {
	query := studentAccountSelect + ` WHERE s.is_active = TRUE AND s.course_id = ANY($1) AND s.current_semester = $2 ORDER BY s.roll_no`
	var students []models.StudentAccount
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(courseIDs), semester); err != nil {
		return nil, fmt.Errorf("list students for demand: %w", err)
	}
	return students, nil
}
