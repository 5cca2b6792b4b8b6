package alert

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"roleinventory/internal/health"
)

// SMTPConfig 为邮件服务器配置。
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// Config 控制告警：风险等级达到 MinTier 时发送。
type Config struct {
	Enabled bool       `yaml:"enabled"`
	MinTier string     `yaml:"min_tier"`
	SMTP    SMTPConfig `yaml:"smtp"`
}

// Sender 发送一封告警。
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender 通过 SMTP 发送纯文本邮件。
type SMTPSender struct {
	cfg  SMTPConfig
	send sendFunc
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host 不能为空")
	}
	if cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("smtp 发件人与收件人不能为空")
	}
	if cfg.Port <= 0 {
		cfg.Port = 25
	}
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}, nil
}

func (s *SMTPSender) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(addr, auth, s.cfg.From, s.cfg.To, buildMessage(s.cfg.From, s.cfg.To, subject, body)); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return buf.Bytes()
}

// Notifier 根据风险等级决定是否告警，只接收等级与总分。
type Notifier struct {
	minTier health.Tier
	sender  Sender
	logger  *zap.Logger
}

// NewNotifier 创建告警器，minTier 为空时默认 Red。sender 为 nil 时不发送。
func NewNotifier(minTier string, sender Sender, logger *zap.Logger) (*Notifier, error) {
	tier := health.TierRed
	if strings.TrimSpace(minTier) != "" {
		parsed, err := health.ParseTier(minTier)
		if err != nil {
			return nil, err
		}
		tier = parsed
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{minTier: tier, sender: sender, logger: logger}, nil
}

// ShouldNotify 判断等级是否达到阈值。
func (n *Notifier) ShouldNotify(tier health.Tier) bool {
	return tier.Rank() >= n.minTier.Rank()
}

// Notify 在等级达到阈值时发送告警，返回是否实际发送。
func (n *Notifier) Notify(ctx context.Context, runID string, tier health.Tier, total int, detail string) (bool, error) {
	if n == nil || n.sender == nil || !n.ShouldNotify(tier) {
		return false, nil
	}
	subject := fmt.Sprintf("[%s] DHCP/DNS 风险评分 %d", tier, total)
	body := fmt.Sprintf("run: %s\ntier: %s\ntotal: %d\n\n%s", runID, tier, total, detail)
	if err := n.sender.Send(ctx, subject, body); err != nil {
		return false, err
	}
	n.logger.Info("已发送告警", zap.String("run_id", runID), zap.String("tier", string(tier)), zap.Int("total", total))
	return true, nil
}
