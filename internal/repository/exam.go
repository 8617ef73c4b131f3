package repository

import (
	"context"
	"fmt"

	"github.com/iamOgunyinka/sproot/internal/model"
)

// CreateExamResult persists one marked paper. The schema's unique
// constraint on (participant_id, course_id) makes the insert itself the
// duplicate-submission check: two racing inserts for the same pair
// resolve to one row and one ErrDuplicate, with no prior existence query
// needed.
func (db *PostgresDB) CreateExamResult(ctx context.Context, r *model.ExamResult) error {
	query := `
		INSERT INTO exam_results (course_id, participant_id, course_owner,
		                          date_taken, score, total_score, other_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := db.pool.QueryRow(ctx, query,
		r.CourseID, r.ParticipantID, r.CourseOwner,
		r.DateTaken, r.Score, r.TotalScore, r.OtherData,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("result for participant %d course %d: %w",
				r.ParticipantID, r.CourseID, ErrDuplicate)
		}
		return err
	}
	return nil
}

// HasExamResult is the request layer's best-effort pre-enqueue check. It
// is advisory only; correctness under races comes from the unique
// constraint in CreateExamResult.
func (db *PostgresDB) HasExamResult(ctx context.Context, participantID, courseID int64) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_results WHERE participant_id = $1 AND course_id = $2)`,
		participantID, courseID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListExamResults returns a participant's results, most recent first.
func (db *PostgresDB) ListExamResults(ctx context.Context, participantID int64) ([]*model.ExamResult, error) {
	query := `
		SELECT id, course_id, participant_id, course_owner,
		       date_taken, score, total_score, other_data, created_at
		FROM exam_results
		WHERE participant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := db.pool.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.ExamResult
	for rows.Next() {
		var r model.ExamResult
		if err := rows.Scan(
			&r.ID, &r.CourseID, &r.ParticipantID, &r.CourseOwner,
			&r.DateTaken, &r.Score, &r.TotalScore, &r.OtherData, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
