package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/iamOgunyinka/sproot/pkg/common"
)

func TestAdminSignupRequestValidate(t *testing.T) {
	valid := AdminSignupRequest{
		Username: "ada",
		Email:    "ada@example.com",
		FullName: "Ada Obi",
		Password: "s3cret",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	missing := AdminSignupRequest{Username: "  ", Password: "s3cret"}
	err := missing.Validate()
	if err == nil {
		t.Fatal("request with blank fields accepted")
	}
	for _, field := range []string{"username", "email", "fullname"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not name %s", err, field)
		}
	}
}

func TestDecodeAdminSignupRequest(t *testing.T) {
	req, err := DecodeAdminSignupRequest(
		`{"username":"ada","email":"ada@example.com","fullname":"Ada Obi","password":"pw","mobile":"+234801"}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.Username != "ada" || req.Mobile != "+234801" {
		t.Errorf("decoded = %+v", req)
	}

	for _, payload := range []string{"", "nope", `{"username":"ada"}`} {
		if _, err := DecodeAdminSignupRequest(payload); !errors.Is(err, common.ErrInvalidPayload) {
			t.Errorf("Decode(%q): err = %v, want ErrInvalidPayload", payload, err)
		}
	}
}

func TestDecodePaperSubmission(t *testing.T) {
	sub, err := DecodePaperSubmission(
		`{"course_id":10,"user_id":42,"owner_id":3,"date_taken":"2025-06-01 10:30","data":"[1,2,3]"}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if sub.CourseID != 10 || sub.UserID != 42 || sub.Data != "[1,2,3]" {
		t.Errorf("decoded = %+v", sub)
	}

	for _, payload := range []string{
		"garbage",
		`{"course_id":0,"user_id":42,"data":"[1]"}`,
		`{"course_id":10,"user_id":42,"data":" "}`,
	} {
		if _, err := DecodePaperSubmission(payload); !errors.Is(err, common.ErrInvalidPayload) {
			t.Errorf("Decode(%q): err = %v, want ErrInvalidPayload", payload, err)
		}
	}
}

func TestConfirmationJobRoundTrip(t *testing.T) {
	payload := FormatConfirmationJob(42, "Ada Obi")
	if payload != "42 %% Ada Obi" {
		t.Fatalf("payload = %q", payload)
	}

	id, fullname, err := ParseConfirmationJob(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if id != 42 || fullname != "Ada Obi" {
		t.Errorf("parsed = (%d, %q)", id, fullname)
	}

	// Names containing the separator survive because only the first
	// occurrence splits.
	_, fullname, err = ParseConfirmationJob(FormatConfirmationJob(7, "A %% B"))
	if err != nil || fullname != "A %% B" {
		t.Errorf("parsed fullname = %q, err = %v", fullname, err)
	}

	for _, payload := range []string{"", "Ada Obi", "x %% Ada", "0 %% Ada"} {
		if _, _, err := ParseConfirmationJob(payload); !errors.Is(err, common.ErrInvalidPayload) {
			t.Errorf("Parse(%q): err = %v, want ErrInvalidPayload", payload, err)
		}
	}
}

func TestSnapshotFromCourse(t *testing.T) {
	snap := SnapshotFromCourse(&Course{
		ID:             10,
		OwnerID:        3,
		Name:           "Data Structures",
		Code:           "CSC201",
		QuestionObject: "questions/ds.json",
		SolutionObject: "solutions/ds.json",
		IconObject:     "icons/ds.png",
	})
	if snap.ID != 10 || snap.Owner != 3 || snap.Solution != "solutions/ds.json" {
		t.Errorf("snapshot = %+v", snap)
	}
}
