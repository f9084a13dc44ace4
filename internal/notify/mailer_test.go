package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kidoz/insightvm-workflow-go/internal/config"
)

func newTestMailer() *Mailer {
	cfg := config.DefaultConfig()
	cfg.Email.Host = "smtp.example.com"
	cfg.Email.Username = "reports@example.com"
	cfg.Workflow.EmailDomain = "@example.com"
	return NewMailer(cfg, zap.NewNop())
}

func TestCompleteAddress(t *testing.T) {
	m := newTestMailer()
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice@example.com"},
		{"bob@other.org", "bob@other.org"},
		{"  carol ", "carol@example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := m.CompleteAddress(tt.in); got != tt.want {
			t.Errorf("CompleteAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompleteAddresses_DropsBlanks(t *testing.T) {
	m := newTestMailer()
	got := m.CompleteAddresses([]string{"alice", "", "bob@other.org"})
	want := []string{"alice@example.com", "bob@other.org"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuildMessage(t *testing.T) {
	m := newTestMailer()
	dir := t.TempDir()
	attachment := filepath.Join(dir, "Weekly_Solution.csv")
	if err := os.WriteFile(attachment, []byte("Vendor,Family\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	msg := &Message{
		Subject:     "Vulnerability Report - Weekly",
		HTMLBody:    "<p>Hello</p>",
		Attachments: []string{attachment},
	}
	content, err := m.buildMessage([]string{"alice@example.com"}, []string{"secops@example.com"}, msg)
	if err != nil {
		t.Fatalf("buildMessage() error: %v", err)
	}

	text := string(content)
	for _, fragment := range []string{
		"From: reports@example.com",
		"To: alice@example.com",
		"Cc: secops@example.com",
		"Subject: ",
		"multipart/mixed",
		"text/html; charset=UTF-8",
		"<p>Hello</p>",
		`filename="Weekly_Solution.csv"`,
		"Content-Transfer-Encoding: base64",
	} {
		if !strings.Contains(text, fragment) {
			t.Errorf("message missing %q", fragment)
		}
	}
}

func TestBuildMessage_MissingAttachment(t *testing.T) {
	m := newTestMailer()
	msg := &Message{
		Subject:     "x",
		HTMLBody:    "y",
		Attachments: []string{filepath.Join(t.TempDir(), "missing.csv")},
	}
	if _, err := m.buildMessage([]string{"a@example.com"}, nil, msg); err == nil {
		t.Error("expected error for missing attachment")
	}
}

func TestSend_NoRecipients(t *testing.T) {
	m := newTestMailer()
	err := m.Send(context.Background(), &Message{Subject: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	var delivery *DeliveryError
	if !errors.As(err, &delivery) {
		t.Fatalf("expected *DeliveryError, got %T", err)
	}
}

func TestReportMessage(t *testing.T) {
	msg, err := ReportMessage("Weekly", []string{"alice"}, []string{"secops"}, []string{"/tmp/Weekly_Solution.csv", "/tmp/Weekly_Vuln.csv"})
	if err != nil {
		t.Fatalf("ReportMessage() error: %v", err)
	}
	if msg.Subject != "Vulnerability Report - Weekly" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "Weekly_Solution.csv") {
		t.Error("body does not list the attachment names")
	}
	if len(msg.Attachments) != 2 {
		t.Errorf("Attachments = %v", msg.Attachments)
	}
}

func TestFailureMessage(t *testing.T) {
	msg, err := FailureMessage("secops", "infra [101 102]", errors.New("download timed out"))
	if err != nil {
		t.Fatalf("FailureMessage() error: %v", err)
	}
	if !strings.Contains(msg.Subject, "FAILED") {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "download timed out") {
		t.Error("body does not carry the failure reason")
	}
	if len(msg.To) != 1 || msg.To[0] != "secops" {
		t.Errorf("To = %v", msg.To)
	}
}
