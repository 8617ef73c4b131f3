package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/iamOgunyinka/sproot/internal/repository"
	"github.com/iamOgunyinka/sproot/pkg/common"
	"github.com/iamOgunyinka/sproot/pkg/observability"
)

// markingDB is the slice of the relational store the marking worker uses.
type markingDB interface {
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	CreateExamResult(ctx context.Context, r *model.ExamResult) error
}

// answerKeyLoader resolves a course's solution object into its ordered
// answer key.
type answerKeyLoader interface {
	Load(ctx context.Context, object string) ([]int, error)
}

// MarkingProcessor scores one submitted paper against its course's
// answer key and persists the result. Scoring requires the submission
// and the key to have the same length; no partial credit is given for a
// paper of the wrong shape.
type MarkingProcessor struct {
	db      markingDB
	answers answerKeyLoader
	log     *slog.Logger
}

func NewMarkingProcessor(db markingDB, answers answerKeyLoader) *MarkingProcessor {
	return &MarkingProcessor{
		db:      db,
		answers: answers,
		log:     observability.Logger().With("component", "marking_worker"),
	}
}

func (p *MarkingProcessor) Process(ctx context.Context, key, payload string) error {
	sub, err := model.DecodePaperSubmission(payload)
	if err != nil {
		return err
	}

	course, err := p.db.GetCourse(ctx, sub.CourseID)
	if err != nil {
		return fmt.Errorf("load course %d: %v: %w", sub.CourseID, err, common.ErrTransient)
	}
	if course == nil {
		return fmt.Errorf("course %d does not exist: %w", sub.CourseID, common.ErrDomain)
	}

	expected, err := p.answers.Load(ctx, course.SolutionObject)
	if err != nil {
		return fmt.Errorf("load answer key %s: %v: %w", course.SolutionObject, err, common.ErrTransient)
	}

	submitted, err := parseAnswers(sub.Data)
	if err != nil {
		return fmt.Errorf("submission for course %d: %v: %w", sub.CourseID, err, common.ErrInvalidPayload)
	}
	if len(submitted) != len(expected) {
		return fmt.Errorf("submission for course %d has %d answers, key has %d: %w",
			sub.CourseID, len(submitted), len(expected), common.ErrDomain)
	}

	score := 0
	for i := range expected {
		if submitted[i] == expected[i] {
			score++
		}
	}

	result := &model.ExamResult{
		CourseID:      sub.CourseID,
		ParticipantID: sub.UserID,
		CourseOwner:   course.OwnerID,
		DateTaken:     sub.DateTaken,
		Score:         score,
		TotalScore:    len(expected),
		OtherData:     []byte(sub.Data),
	}
	if err := p.db.CreateExamResult(ctx, result); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("participant %d already has a result for course %d: %w",
				sub.UserID, sub.CourseID, common.ErrDomain)
		}
		return fmt.Errorf("persist result for course %d: %v: %w", sub.CourseID, err, common.ErrTransient)
	}

	p.log.Info("paper marked",
		"course_id", sub.CourseID,
		"participant_id", sub.UserID,
		"score", score,
		"total", len(expected),
	)
	return nil
}

// parseAnswers decodes a submission's answer array. Clients encode the
// indices inconsistently (numbers, floats, digit strings), so each
// element is coerced to its integer value.
func parseAnswers(data string) ([]int, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("answers are not a JSON array: %v", err)
	}
	answers := make([]int, len(raw))
	for i, v := range raw {
		n, err := answerIndex(v)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %v", i, err)
		}
		answers[i] = n
	}
	return answers, nil
}

func answerIndex(v interface{}) (int, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n), nil
		}
		if f, err := x.Float64(); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("not a number: %q", x.String())
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return int(n), nil
		}
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return int(f), nil
		}
		return 0, fmt.Errorf("not a number: %q", x)
	default:
		return 0, fmt.Errorf("unsupported answer type %T", v)
	}
}
