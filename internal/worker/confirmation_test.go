package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iamOgunyinka/sproot/internal/mail"
	"github.com/iamOgunyinka/sproot/internal/token"
	"github.com/iamOgunyinka/sproot/pkg/common"
)

type mockMailer struct {
	mu      sync.Mutex
	sent    []mail.Message
	failErr error
}

func (m *mockMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newConfirmationFixture(t *testing.T, mailer mail.Mailer) (*ConfirmationProcessor, *token.Signer) {
	t.Helper()
	signer, err := token.NewSigner("confirmation-test-secret")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	proc := NewConfirmationProcessor(mailer, signer, "https://tuq.example.com/", 12*time.Hour)
	return proc, signer
}

func TestConfirmationSendsVerifiableLink(t *testing.T) {
	mailer := &mockMailer{}
	proc, signer := newConfirmationFixture(t, mailer)

	err := proc.Process(context.Background(), "ada@example.com", "42 %% Ada Obi")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}

	msg := mailer.sent[0]
	if msg.To != "ada@example.com" || msg.ToName != "Ada Obi" {
		t.Errorf("recipient = %q (%q)", msg.To, msg.ToName)
	}
	if msg.Subject != "[Tuq] Confirm your email account" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "Ada Obi") {
		t.Error("body does not greet the recipient by name")
	}

	const prefix = "https://tuq.example.com/confirm?token="
	idx := strings.Index(msg.TextBody, prefix)
	if idx < 0 {
		t.Fatalf("body has no confirmation link:\n%s", msg.TextBody)
	}
	rest := msg.TextBody[idx+len(prefix):]
	tok := strings.Fields(rest)[0]

	claims, err := signer.Verify(tok, token.PurposeConfirmEmail)
	if err != nil {
		t.Fatalf("link token does not verify: %v", err)
	}
	if claims.UserID != 42 || claims.Subject != "ada@example.com" {
		t.Errorf("claims = (%d, %q), want (42, ada@example.com)", claims.UserID, claims.Subject)
	}
}

func TestConfirmationMailFailureIsTransient(t *testing.T) {
	mailer := &mockMailer{failErr: errors.New("451 try again later")}
	proc, _ := newConfirmationFixture(t, mailer)

	err := proc.Process(context.Background(), "ada@example.com", "42 %% Ada Obi")
	if !errors.Is(err, common.ErrTransient) {
		t.Errorf("mail failure: err = %v, want ErrTransient", err)
	}
}

func TestConfirmationRejectsMalformedPayloads(t *testing.T) {
	proc, _ := newConfirmationFixture(t, &mockMailer{})

	for _, payload := range []string{"", "Ada Obi", "abc %% Ada", "-3 %% Ada"} {
		err := proc.Process(context.Background(), "ada@example.com", payload)
		if !errors.Is(err, common.ErrInvalidPayload) {
			t.Errorf("Process(%q): err = %v, want ErrInvalidPayload", payload, err)
		}
	}
}

func TestConfirmationFailureValue(t *testing.T) {
	if v := ConfirmationFailureValue("ada@example.com", "42 %% Ada Obi"); v != "42" {
		t.Errorf("failure value = %q, want 42", v)
	}
	// Unparseable payloads fall back to the verbatim payload.
	if v := ConfirmationFailureValue("ada@example.com", "garbage"); v != "garbage" {
		t.Errorf("failure value = %q, want the original payload", v)
	}
}
