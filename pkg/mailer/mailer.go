// Package mailer 纯文本事务邮件发送。
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kimeia/alientu-engine/config"
)

// Message 一封纯文本邮件
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// New 根据配置选择实现：未配置 SMTP 主机时只写日志
func New(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" {
		logger.Warn("未配置 mail.smtp_host，邮件仅写入日志")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(cfg)
}

// ── SMTP ──

// SMTPMailer 通过 SMTP（PLAIN 认证）发送
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer 创建 SMTPMailer
func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		from: cfg.From,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("收件人为空")
	}

	envelopeFrom := m.from
	if i := strings.LastIndex(envelopeFrom, "<"); i >= 0 {
		envelopeFrom = strings.TrimSuffix(envelopeFrom[i+1:], ">")
	}

	if err := m.send(m.addr, m.auth, envelopeFrom, []string{msg.To}, Compose(m.from, msg, time.Now())); err != nil {
		return fmt.Errorf("SMTP 发送失败: %w", err)
	}
	return nil
}

// Compose 生成 RFC 5322 纯文本邮件
func Compose(from string, msg *Message, date time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// ── Log ──

// LogMailer 仅记录日志，用于开发环境与未配置 SMTP 的部署
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer 创建 LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg *Message) error {
	m.logger.Info("邮件（未发送）",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_len", len(msg.Body)),
	)
	return nil
}
