package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/iamOgunyinka/sproot/internal/repository"
	"github.com/iamOgunyinka/sproot/pkg/common"
	"github.com/iamOgunyinka/sproot/pkg/observability"
)

// adminDB is the slice of the relational store the approval worker uses.
type adminDB interface {
	CreateAdminUser(ctx context.Context, u *model.User) error
}

// approvalQueue covers the dedup sets and the downstream confirmation
// hash the worker writes after a successful insert.
type approvalQueue interface {
	Enqueue(ctx context.Context, hash, key, payload string) error
	AddDedup(ctx context.Context, set, member string) error
}

// ApprovalProcessor turns a queued administrator signup request into a
// users row, updates the dedup sets and hands the new account to the
// confirmation-email worker.
type ApprovalProcessor struct {
	db    adminDB
	queue approvalQueue
	log   *slog.Logger
}

func NewApprovalProcessor(db adminDB, q approvalQueue) *ApprovalProcessor {
	return &ApprovalProcessor{
		db:    db,
		queue: q,
		log:   observability.Logger().With("component", "approval_worker"),
	}
}

func (p *ApprovalProcessor) Process(ctx context.Context, key, payload string) error {
	req, err := model.DecodeAdminSignupRequest(payload)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password for %s: %v: %w", req.Username, err, common.ErrTransient)
	}

	user := &model.User{
		Username:     req.Username,
		Alias:        req.Alias,
		FullName:     req.FullName,
		Email:        req.Email,
		PhoneNumber:  req.Mobile,
		Address:      req.Address,
		PasswordHash: string(hash),
		Role:         model.RoleAdministrator,
		IsConfirmed:  false,
		OtherInfo:    req.Nationality,
	}
	if err := p.db.CreateAdminUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("create admin %s: %v: %w", req.Username, err, common.ErrDomain)
		}
		return fmt.Errorf("create admin %s: %v: %w", req.Username, err, common.ErrTransient)
	}

	// Dedup sets mirror the row just inserted. They are advisory, so a
	// failed SADD degrades the fast-path check instead of failing the item.
	p.addDedup(ctx, common.UsernamesSetKey, user.Username)
	p.addDedup(ctx, common.EmailsSetKey, user.Email)
	if user.PhoneNumber != "" {
		p.addDedup(ctx, common.PhonesSetKey, user.PhoneNumber)
	}

	job := model.FormatConfirmationJob(user.ID, user.FullName)
	if err := p.queue.Enqueue(ctx, common.PendingConfirmationEmailsKey, user.Email, job); err != nil {
		// The account row exists, but without this job the user never
		// receives a confirmation link. Fail the item so the failure hash
		// keeps a durable trace for an operator to replay.
		return fmt.Errorf("enqueue confirmation for user %d: %v: %w", user.ID, err, common.ErrTransient)
	}

	p.log.Info("administrator account created",
		"username", user.Username, "user_id", user.ID)
	return nil
}

func (p *ApprovalProcessor) addDedup(ctx context.Context, set, member string) {
	if err := p.queue.AddDedup(ctx, set, member); err != nil {
		p.log.Error("dedup set update failed", "set", set, "error", err)
	}
}
