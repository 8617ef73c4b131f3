package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/iamOgunyinka/sproot/pkg/common"
)

// AdminSignupRequest is the payload stored in the admin-requests hash,
// keyed by username. Written by the request layer, consumed by the
// approval worker.
type AdminSignupRequest struct {
	FullName    string `json:"fullname"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	Nationality string `json:"nationality"`
	Alias       string `json:"alias"`
	Mobile      string `json:"mobile"`
	Password    string `json:"password"`
	Username    string `json:"username"`
}

// Validate checks the fields the approval worker cannot proceed without.
// Validation happens at dequeue so malformed items fail fast and visibly
// instead of deep inside the insert path.
func (r *AdminSignupRequest) Validate() error {
	missing := make([]string, 0, 4)
	if strings.TrimSpace(r.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.FullName) == "" {
		missing = append(missing, "fullname")
	}
	if r.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}

// PaperSubmission is the payload stored in the pending-papers hash. Data
// is itself a JSON-encoded array of answer indices; it is kept as the raw
// string so the persisted ExamResult carries the submission verbatim.
type PaperSubmission struct {
	CourseID  int64  `json:"course_id"`
	UserID    int64  `json:"user_id"`
	OwnerID   int64  `json:"owner_id"`
	DateTaken string `json:"date_taken"`
	Data      string `json:"data"`
}

func (p *PaperSubmission) Validate() error {
	missing := make([]string, 0, 3)
	if p.CourseID <= 0 {
		missing = append(missing, "course_id")
	}
	if p.UserID <= 0 {
		missing = append(missing, "user_id")
	}
	if strings.TrimSpace(p.Data) == "" {
		missing = append(missing, "data")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}

// DecodePaperSubmission parses and validates a pending-papers payload.
func DecodePaperSubmission(payload string) (*PaperSubmission, error) {
	var sub PaperSubmission
	if err := json.Unmarshal([]byte(payload), &sub); err != nil {
		return nil, fmt.Errorf("decode paper submission: %v: %w", err, common.ErrInvalidPayload)
	}
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("paper submission: %v: %w", err, common.ErrInvalidPayload)
	}
	return &sub, nil
}

// DecodeAdminSignupRequest parses and validates an admin-requests payload.
func DecodeAdminSignupRequest(payload string) (*AdminSignupRequest, error) {
	var req AdminSignupRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("decode admin request: %v: %w", err, common.ErrInvalidPayload)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("admin request: %v: %w", err, common.ErrInvalidPayload)
	}
	return &req, nil
}

// FormatConfirmationJob renders the confirmation-email payload,
// "<user_id> %% <fullname>".
func FormatConfirmationJob(userID int64, fullname string) string {
	return strconv.FormatInt(userID, 10) + common.ConfirmationPayloadSep + fullname
}

// ParseConfirmationJob splits a confirmation-email payload back into its
// user id and full name.
func ParseConfirmationJob(payload string) (int64, string, error) {
	parts := strings.SplitN(payload, common.ConfirmationPayloadSep, 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("confirmation payload %q: missing separator: %w", payload, common.ErrInvalidPayload)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("confirmation payload %q: bad user id: %w", payload, common.ErrInvalidPayload)
	}
	return id, parts[1], nil
}
