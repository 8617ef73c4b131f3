package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/iamOgunyinka/sproot/internal/mail"
	"github.com/iamOgunyinka/sproot/internal/model"
	"github.com/iamOgunyinka/sproot/internal/token"
	"github.com/iamOgunyinka/sproot/pkg/common"
	"github.com/iamOgunyinka/sproot/pkg/observability"
)

const confirmationSubject = "[Tuq] Confirm your email account"

var confirmationBody = template.Must(template.New("confirmation").Parse(
	`Hello {{.FullName}},

An administrator account was created for you on Tuq. Confirm your email
address by following the link below within {{.ExpiryHours}} hours:

{{.Link}}

If you did not request this account, ignore this message.
`))

// tokenSigner is the slice of the token package the worker needs.
type tokenSigner interface {
	Generate(userID int64, subject, purpose string, ttl time.Duration) (string, error)
}

// ConfirmationProcessor sends the signed confirmation link for a newly
// created administrator account. The item key is the recipient email;
// the payload is "<user_id> %% <fullname>".
type ConfirmationProcessor struct {
	mailer mail.Mailer
	signer tokenSigner

	baseURL string
	expiry  time.Duration

	log *slog.Logger
}

func NewConfirmationProcessor(mailer mail.Mailer, signer tokenSigner, baseURL string, expiry time.Duration) *ConfirmationProcessor {
	return &ConfirmationProcessor{
		mailer:  mailer,
		signer:  signer,
		baseURL: strings.TrimRight(baseURL, "/"),
		expiry:  expiry,
		log:     observability.Logger().With("component", "confirmation_worker"),
	}
}

func (p *ConfirmationProcessor) Process(ctx context.Context, key, payload string) error {
	userID, fullname, err := model.ParseConfirmationJob(payload)
	if err != nil {
		return err
	}
	email := key

	tok, err := p.signer.Generate(userID, email, token.PurposeConfirmEmail, p.expiry)
	if err != nil {
		return fmt.Errorf("sign confirmation token for user %d: %v: %w", userID, err, common.ErrTransient)
	}

	var body bytes.Buffer
	err = confirmationBody.Execute(&body, struct {
		FullName    string
		ExpiryHours int
		Link        string
	}{
		FullName:    fullname,
		ExpiryHours: int(p.expiry.Hours()),
		Link:        p.baseURL + "/confirm?token=" + tok,
	})
	if err != nil {
		return fmt.Errorf("render confirmation mail for user %d: %w", userID, err)
	}

	msg := mail.Message{
		To:       email,
		ToName:   fullname,
		Subject:  confirmationSubject,
		TextBody: body.String(),
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation to %s: %v: %w", email, err, common.ErrTransient)
	}

	p.log.Info("confirmation email sent", "user_id", userID, "email", email)
	return nil
}

// ConfirmationFailureValue records only the user id in the failure hash;
// the email address already keys the entry.
func ConfirmationFailureValue(key, payload string) string {
	userID, _, err := model.ParseConfirmationJob(payload)
	if err != nil {
		return payload
	}
	return strconv.FormatInt(userID, 10)
}
