package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/jackc/pgx/v5"
)

const courseColumns = `
	c.id, c.repo_id, r.user_id, c.name, c.code, c.lecturer_in_charge,
	c.question_object, c.solution_object, COALESCE(c.icon_object, ''),
	c.date_to_be_held, c.duration_in_minutes
`

// GetCourse returns nil, nil when the course does not exist; the marking
// worker treats that as a hard failure for the item.
func (db *PostgresDB) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses c
		JOIN repositories r ON r.id = c.repo_id
		WHERE c.id = $1
	`
	var c model.Course
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.RepoID, &c.OwnerID, &c.Name, &c.Code, &c.LecturerInCharge,
		&c.QuestionObject, &c.SolutionObject, &c.IconObject,
		&c.DateToBeHeld, &c.DurationMinutes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCoursesBetween returns courses scheduled within [from, to],
// soonest first.
func (db *PostgresDB) ListCoursesBetween(ctx context.Context, from, to time.Time) ([]*model.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses c
		JOIN repositories r ON r.id = c.repo_id
		WHERE c.date_to_be_held BETWEEN $1 AND $2
		ORDER BY c.date_to_be_held ASC
	`
	rows, err := db.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(
			&c.ID, &c.RepoID, &c.OwnerID, &c.Name, &c.Code, &c.LecturerInCharge,
			&c.QuestionObject, &c.SolutionObject, &c.IconObject,
			&c.DateToBeHeld, &c.DurationMinutes,
		); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}
