// Package api is the HTTP surface of the exam platform. Writes that
// need background work (administrator signups, submitted papers) are
// queued for the broker; reads are served from Postgres with the Redis
// course cache in front.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/iamOgunyinka/sproot/internal/queue"
	"github.com/iamOgunyinka/sproot/internal/token"
	"github.com/iamOgunyinka/sproot/pkg/common"
)

// dataStore is the slice of the relational store the handlers use.
type dataStore interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ConfirmUser(ctx context.Context, userID int64, email string) (bool, error)
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	HasExamResult(ctx context.Context, participantID, courseID int64) (bool, error)
	ListExamResults(ctx context.Context, participantID int64) ([]*model.ExamResult, error)
}

// queueStore covers the work hashes, dedup sets, course cache and
// ranking the handlers touch.
type queueStore interface {
	Enqueue(ctx context.Context, hash, key, payload string) error
	IsDedupMember(ctx context.Context, set, member string) (bool, error)
	CourseSnapshot(ctx context.Context, courseID int64) (*model.CourseSnapshot, error)
	RefreshCourseSnapshot(ctx context.Context, snap model.CourseSnapshot) error
	TopRankedCourses(ctx context.Context, limit int64) ([]int64, error)
	BumpCourseRank(ctx context.Context, courseID int64) error
}

// objectPresigner issues time-limited download URLs for blob objects.
type objectPresigner interface {
	PresignedGet(ctx context.Context, object string, expiry time.Duration) (string, error)
}

// Handler serves the platform's HTTP API.
type Handler struct {
	db      dataStore
	queue   queueStore
	signer  *token.Signer
	presign objectPresigner
	sessTTL time.Duration
	linkTTL time.Duration
}

func NewHandler(db dataStore, q queueStore, signer *token.Signer, presign objectPresigner, sessionTTL time.Duration) *Handler {
	return &Handler{
		db:      db,
		queue:   q,
		signer:  signer,
		presign: presign,
		sessTTL: sessionTTL,
		linkTTL: time.Hour,
	}
}

func (h *Handler) requestLogger(c *gin.Context) *slog.Logger {
	return slog.With(
		"request_id", GetRequestID(c),
		"ip", c.ClientIP(),
		"path", c.FullPath(),
	)
}

// HandleAdminSignup queues an administrator signup request. The dedup
// sets give the caller an early duplicate answer; the database unique
// constraints stay authoritative when the approval worker processes
// the request.
func (h *Handler) HandleAdminSignup(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)

	var req model.AdminSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "code": "BAD_REQUEST"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_PARAM"})
		SignupTotal.WithLabelValues("invalid").Inc()
		return
	}

	checks := []struct{ set, member, field string }{
		{common.UsernamesSetKey, req.Username, "username"},
		{common.EmailsSetKey, req.Email, "email"},
	}
	if req.Mobile != "" {
		checks = append(checks, struct{ set, member, field string }{common.PhonesSetKey, req.Mobile, "phone"})
	}
	for _, check := range checks {
		taken, err := h.queue.IsDedupMember(ctx, check.set, check.member)
		if err != nil {
			// Degrade to the authoritative database check downstream.
			logger.Warn("dedup check failed", "set", check.set, "error", err)
			continue
		}
		if taken {
			c.JSON(http.StatusConflict, gin.H{
				"error": check.field + " is already taken",
				"code":  "DUPLICATE",
			})
			SignupTotal.WithLabelValues("duplicate").Inc()
			return
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
		return
	}
	if err := h.queue.Enqueue(ctx, common.AdminRequestsKey, req.Username, string(payload)); err != nil {
		logger.Error("signup enqueue failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable", "code": "STORE_ERROR"})
		SignupTotal.WithLabelValues("error").Inc()
		return
	}

	logger.Info("administrator signup queued", "username", req.Username)
	SignupTotal.WithLabelValues("queued").Inc()
	c.JSON(http.StatusAccepted, gin.H{"status": "pending approval"})
}

// HandleLogin checks credentials and issues a session token.
func (h *Handler) HandleLogin(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)

	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "code": "BAD_REQUEST"})
		return
	}

	user, err := h.db.GetUserByUsername(ctx, req.Username)
	if err != nil {
		logger.Error("user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "DB_ERROR"})
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "code": "UNAUTHORIZED"})
		return
	}
	if !user.IsConfirmed {
		c.JSON(http.StatusForbidden, gin.H{"error": "account not confirmed", "code": "NOT_CONFIRMED"})
		return
	}

	tok, err := h.signer.Generate(user.ID, user.Username, token.PurposeSession, h.sessTTL)
	if err != nil {
		logger.Error("session token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{
		Token:    tok,
		Username: user.Username,
		UserID:   user.ID,
	})
}

// HandleConfirm consumes a confirmation-link token and flips the
// account's confirmed flag.
func (h *Handler) HandleConfirm(c *gin.Context) {
	ctx := c.Request.Context()

	claims, err := h.signer.Verify(c.Query("token"), token.PurposeConfirmEmail)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired link", "code": "INVALID_TOKEN"})
		return
	}

	ok, err := h.db.ConfirmUser(ctx, claims.UserID, claims.Subject)
	if err != nil {
		h.requestLogger(c).Error("confirm failed", "user_id", claims.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "DB_ERROR"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired link", "code": "INVALID_TOKEN"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "email confirmed"})
}

// SubmitPaperRequest is a participant's answer sheet for one course.
type SubmitPaperRequest struct {
	CourseID  int64  `json:"course_id" binding:"required"`
	DateTaken string `json:"date_taken"`
	Data      string `json:"data" binding:"required"`
}

// HandleSubmitPaper queues a paper for the marking worker. The advisory
// existence check gives a fast 409; the exam_results unique constraint
// settles races.
func (h *Handler) HandleSubmitPaper(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)
	userID := c.GetInt64("user_id")

	var req SubmitPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "code": "BAD_REQUEST"})
		return
	}

	course, err := h.db.GetCourse(ctx, req.CourseID)
	if err != nil {
		logger.Error("course lookup failed", "course_id", req.CourseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "DB_ERROR"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course does not exist", "code": "NOT_FOUND"})
		return
	}

	if taken, err := h.db.HasExamResult(ctx, userID, req.CourseID); err != nil {
		logger.Warn("existence precheck failed", "error", err)
	} else if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "paper already submitted for this course", "code": "DUPLICATE"})
		PaperSubmissionTotal.WithLabelValues("duplicate").Inc()
		return
	}

	if req.DateTaken == "" {
		req.DateTaken = time.Now().UTC().Format("2006-01-02 15:04")
	}
	sub := model.PaperSubmission{
		CourseID:  req.CourseID,
		UserID:    userID,
		OwnerID:   course.OwnerID,
		DateTaken: req.DateTaken,
		Data:      req.Data,
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
		return
	}

	itemKey := fmt.Sprintf("%d:%d", userID, req.CourseID)
	if err := h.queue.Enqueue(ctx, common.PendingPapersKey, itemKey, string(payload)); err != nil {
		logger.Error("paper enqueue failed", "key", itemKey, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable", "code": "STORE_ERROR"})
		PaperSubmissionTotal.WithLabelValues("error").Inc()
		return
	}

	logger.Info("paper queued for marking", "course_id", req.CourseID, "participant_id", userID)
	PaperSubmissionTotal.WithLabelValues("queued").Inc()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued for marking"})
}

// resultView is one marked paper enriched with its course's display name.
type resultView struct {
	CourseID   int64  `json:"course_id"`
	CourseName string `json:"course_name,omitempty"`
	DateTaken  string `json:"date_taken"`
	Score      int    `json:"score"`
	TotalScore int    `json:"total_score"`
}

// HandleGetResults returns the caller's marked papers. Course names come
// from the cache, falling back to the database and refreshing the cache
// on a miss.
func (h *Handler) HandleGetResults(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)
	userID := c.GetInt64("user_id")

	results, err := h.db.ListExamResults(ctx, userID)
	if err != nil {
		logger.Error("results lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "DB_ERROR"})
		return
	}

	views := make([]resultView, 0, len(results))
	for _, r := range results {
		views = append(views, resultView{
			CourseID:   r.CourseID,
			CourseName: h.courseName(ctx, logger, r.CourseID),
			DateTaken:  r.DateTaken,
			Score:      r.Score,
			TotalScore: r.TotalScore,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": views})
}

func (h *Handler) courseName(ctx context.Context, logger *slog.Logger, courseID int64) string {
	snap := h.courseSnapshot(ctx, logger, courseID)
	if snap == nil {
		return ""
	}
	return snap.Name
}

// courseSnapshot reads the course cache, falling back to the database
// and refreshing the cache on a miss. Returns nil when the course does
// not exist anywhere.
func (h *Handler) courseSnapshot(ctx context.Context, logger *slog.Logger, courseID int64) *model.CourseSnapshot {
	snap, err := h.queue.CourseSnapshot(ctx, courseID)
	if err == nil {
		return snap
	}
	if !errors.Is(err, queue.ErrNotFound) {
		logger.Warn("course cache read failed", "course_id", courseID, "error", err)
	}

	course, err := h.db.GetCourse(ctx, courseID)
	if err != nil || course == nil {
		return nil
	}
	fresh := model.SnapshotFromCourse(course)
	if err := h.queue.RefreshCourseSnapshot(ctx, fresh); err != nil {
		logger.Warn("course cache refresh failed", "course_id", courseID, "error", err)
	}
	return &fresh
}

// HandleRankedCourses lists the most popular courses, best first.
func (h *Handler) HandleRankedCourses(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)

	limit := int64(10)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	ids, err := h.queue.TopRankedCourses(ctx, limit)
	if err != nil {
		logger.Error("ranking read failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store unavailable", "code": "STORE_ERROR"})
		return
	}

	courses := make([]model.CourseSnapshot, 0, len(ids))
	for _, id := range ids {
		// Same cache-then-DB path as the results view, so a cold cache
		// does not empty the listing.
		snap := h.courseSnapshot(ctx, logger, id)
		if snap == nil {
			continue
		}
		courses = append(courses, *snap)
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// HandleCourseAccess issues a question-paper token for one course and
// counts the access towards the course's popularity.
func (h *Handler) HandleCourseAccess(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)
	userID := c.GetInt64("user_id")

	courseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || courseID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad course id", "code": "INVALID_PARAM"})
		return
	}

	course, err := h.db.GetCourse(ctx, courseID)
	if err != nil {
		logger.Error("course lookup failed", "course_id", courseID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "DB_ERROR"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "course does not exist", "code": "NOT_FOUND"})
		return
	}

	ttl := h.linkTTL
	if course.DurationMinutes > 0 {
		ttl = time.Duration(course.DurationMinutes)*time.Minute + 15*time.Minute
	}
	tok, err := h.signer.Generate(userID, course.QuestionObject, token.PurposeCourseQuestion, ttl)
	if err != nil {
		logger.Error("question token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
		return
	}

	if err := h.queue.BumpCourseRank(ctx, courseID); err != nil {
		logger.Warn("course rank bump failed", "course_id", courseID, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"token": tok, "expires_in_sec": int(ttl.Seconds())})
}

// HandleCourseQuestion exchanges a question-paper token for a download
// URL of the question object.
func (h *Handler) HandleCourseQuestion(c *gin.Context) {
	claims, err := h.signer.Verify(c.Query("token"), token.PurposeCourseQuestion)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
		return
	}

	url, err := h.presign.PresignedGet(c.Request.Context(), claims.Subject, h.linkTTL)
	if err != nil {
		h.requestLogger(c).Error("presign failed", "object", claims.Subject, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable", "code": "STORAGE_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// HandleRawAccess issues a raw-object token. Administrator accounts only.
func (h *Handler) HandleRawAccess(c *gin.Context) {
	ctx := c.Request.Context()
	logger := h.requestLogger(c)
	username := c.GetString("username")

	user, err := h.db.GetUserByUsername(ctx, username)
	if err != nil {
		logger.Error("user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error", "code": "DB_ERROR"})
		return
	}
	if user == nil || user.Role != model.RoleAdministrator {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrator account required", "code": "FORBIDDEN"})
		return
	}

	var req struct {
		Object string `json:"object" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "code": "BAD_REQUEST"})
		return
	}

	tok, err := h.signer.Generate(user.ID, req.Object, token.PurposeRawRepository, h.linkTTL)
	if err != nil {
		logger.Error("raw token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok})
}

// HandleRawObject exchanges a raw-object token for a download URL.
func (h *Handler) HandleRawObject(c *gin.Context) {
	claims, err := h.signer.Verify(c.Query("token"), token.PurposeRawRepository)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
		return
	}

	url, err := h.presign.PresignedGet(c.Request.Context(), claims.Subject, h.linkTTL)
	if err != nil {
		h.requestLogger(c).Error("presign failed", "object", claims.Subject, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable", "code": "STORAGE_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
