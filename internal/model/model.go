package model

import (
	"time"
)

// User roles
const (
	RoleNormalUser    = 0x2
	RoleAdministrator = 0x4
)

// User is a users row. Administrator accounts start unconfirmed and are
// created only by the approval worker.
type User struct {
	ID              int64     `json:"id" db:"id"`
	Username        string    `json:"username" db:"username"`
	Alias           string    `json:"alias,omitempty" db:"alias"`
	FullName        string    `json:"fullname" db:"fullname"`
	Email           string    `json:"email" db:"email"`
	PhoneNumber     string    `json:"phone_number,omitempty" db:"phone_number"`
	Address         string    `json:"address,omitempty" db:"address"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	Role            int       `json:"role" db:"role"`
	IsConfirmed     bool      `json:"is_confirmed" db:"is_confirmed"`
	IsActivePremium bool      `json:"is_active_premium" db:"is_active_premium"`
	OtherInfo       string    `json:"other_info,omitempty" db:"other_info"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Repository is a named container of courses owned by one administrator.
type Repository struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"repo_name" db:"repo_name"`
	UserID int64  `json:"user_id" db:"user_id"`
}

// Course is a timed quiz. QuestionObject and SolutionObject are blob-store
// object names; the solution object holds the ordered answer-key array.
type Course struct {
	ID               int64     `json:"id" db:"id"`
	RepoID           int64     `json:"repo_id" db:"repo_id"`
	OwnerID          int64     `json:"owner_id" db:"owner_id"`
	Name             string    `json:"name" db:"name"`
	Code             string    `json:"code" db:"code"`
	LecturerInCharge string    `json:"lecturer_in_charge" db:"lecturer_in_charge"`
	QuestionObject   string    `json:"question_object" db:"question_object"`
	SolutionObject   string    `json:"solution_object" db:"solution_object"`
	IconObject       string    `json:"icon_object,omitempty" db:"icon_object"`
	DateToBeHeld     time.Time `json:"date_to_be_held" db:"date_to_be_held"`
	DurationMinutes  int       `json:"duration_in_minutes" db:"duration_in_minutes"`
}

// ExamResult is the authoritative record of one marked paper. Exactly one
// row may exist per (participant, course) pair; the unique constraint in
// the schema is the duplicate-submission check.
type ExamResult struct {
	ID            int64     `json:"id" db:"id"`
	CourseID      int64     `json:"course_id" db:"course_id"`
	ParticipantID int64     `json:"participant_id" db:"participant_id"`
	CourseOwner   int64     `json:"course_owner" db:"course_owner"`
	DateTaken     string    `json:"date_taken" db:"date_taken"`
	Score         int       `json:"score" db:"score"`
	TotalScore    int       `json:"total_score" db:"total_score"`
	OtherData     []byte    `json:"other_data,omitempty" db:"other_data"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CourseSnapshot is the denormalized value stored in the known_courses
// hash. Eventually consistent, never authoritative.
type CourseSnapshot struct {
	Name     string `json:"name"`
	ID       int64  `json:"id"`
	Owner    int64  `json:"owner"`
	Code     string `json:"code"`
	Solution string `json:"solution"`
	Question string `json:"question"`
	Icon     string `json:"icon,omitempty"`
}

// SnapshotFromCourse builds the cached view of a course row.
func SnapshotFromCourse(c *Course) CourseSnapshot {
	return CourseSnapshot{
		Name:     c.Name,
		ID:       c.ID,
		Owner:    c.OwnerID,
		Code:     c.Code,
		Solution: c.SolutionObject,
		Question: c.QuestionObject,
		Icon:     c.IconObject,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
}
