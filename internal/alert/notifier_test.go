package alert

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"roleinventory/internal/health"
)

type recordSender struct {
	subjects []string
	err      error
}

func (r *recordSender) Send(_ context.Context, subject, _ string) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestNotifyRespectsMinTier(t *testing.T) {
	s := &recordSender{}
	n, err := NewNotifier("", s, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	sent, err := n.Notify(context.Background(), "r1", health.TierYellow, 5, "")
	if err != nil || sent {
		t.Fatalf("yellow should not alert by default: sent=%v err=%v", sent, err)
	}
	sent, err = n.Notify(context.Background(), "r1", health.TierRed, 9, "")
	if err != nil || !sent {
		t.Fatalf("red should alert: sent=%v err=%v", sent, err)
	}
	if len(s.subjects) != 1 || !strings.Contains(s.subjects[0], "[Red]") {
		t.Fatalf("unexpected subjects: %v", s.subjects)
	}

	yellow, _ := NewNotifier("yellow", s, nil)
	if !yellow.ShouldNotify(health.TierYellow) || yellow.ShouldNotify(health.TierGreen) {
		t.Fatalf("yellow threshold misbehaves")
	}
	if _, err := NewNotifier("blue", s, nil); err == nil {
		t.Fatalf("expected invalid tier error")
	}
}

func TestNotifyPropagatesSendError(t *testing.T) {
	n, _ := NewNotifier("green", &recordSender{err: errors.New("relay denied")}, nil)
	if _, err := n.Notify(context.Background(), "r1", health.TierGreen, 0, ""); err == nil {
		t.Fatalf("expected send error")
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "mail.corp.local", From: "inv@corp.local", To: []string{"ops@corp.local"}})
	if err != nil {
		t.Fatalf("new sender: %v", err)
	}
	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return nil
	}
	if err := s.Send(context.Background(), "subj", "line1\nline2"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mail.corp.local:25" {
		t.Fatalf("addr = %s", gotAddr)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: subj\r\n") || !strings.Contains(msg, "line1\r\nline2") {
		t.Fatalf("unexpected message:\n%s", msg)
	}
	if _, err := NewSMTPSender(SMTPConfig{}); err == nil {
		t.Fatalf("expected config error")
	}
}
