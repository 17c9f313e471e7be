package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kimeia/alientu-engine/internal/workflow"
	"github.com/kimeia/alientu-engine/pkg/mailer"
)

// fakeMailer 记录发送的邮件，可注入发送失败；panicOnce 为 true 时第一次发送 panic
type fakeMailer struct {
	mu        sync.Mutex
	sent      []mailer.Message
	err       error
	panicOnce bool
}

func (f *fakeMailer) Send(_ context.Context, msg *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnce {
		f.panicOnce = false
		panic("template data nil")
	}
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *msg)
	return nil
}

func setupTestDispatcher(t *testing.T) (ActionDispatcher, RegistrationService, *mockRepos, *fakeMailer) {
	t.Helper()
	repo, mocks := newMockRepository()
	mail := &fakeMailer{}
	d := NewActionDispatcher(testConfig(), repo, mail, zap.NewNop())
	return d, newTestRegistrationService(repo, nil), mocks, mail
}

func TestLoadEmailTemplates_Embedded(t *testing.T) {
	tpls, err := loadEmailTemplates(emailFS)
	if err != nil {
		t.Fatalf("加载内置模板失败: %v", err)
	}
	for _, s := range workflow.Statuses {
		if s == workflow.StatusArchived {
			continue
		}
		if _, ok := tpls["alientu-26/"+string(s)]; !ok {
			t.Errorf("缺少模板 alientu-26/%s", s)
		}
	}
}

func TestLoadEmailTemplates_ParseError(t *testing.T) {
	fsys := fstest.MapFS{
		"emails/x/broken.tmpl": {Data: []byte(`{{define "subject"}}{{.Code`)},
	}
	if _, err := loadEmailTemplates(fsys); err == nil {
		t.Error("语法错误的模板应返回错误")
	}
}

func TestActionDispatcher_SendsReceivedEmail(t *testing.T) {
	d, svc, _, mail := setupTestDispatcher(t)
	res := submitLupiBlu(t, svc)

	d.Dispatch(context.Background(), res.RegistrationID, res.Actions)

	if len(mail.sent) != 1 {
		t.Fatalf("期望发送 1 封邮件，实际 %d", len(mail.sent))
	}
	msg := mail.sent[0]
	if msg.To != "marco.rossi@example.it" {
		t.Errorf("收件人错误: %s", msg.To)
	}
	if msg.Subject != "Alientu 2026 – Iscrizione ricevuta ["+res.Code+"]" {
		t.Errorf("主题错误: %s", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Ciao Marco Rossi,") || !strings.Contains(msg.Body, "€ 69,00") {
		t.Errorf("正文缺少姓名或金额:\n%s", msg.Body)
	}
}

func TestActionDispatcher_WaitingPaymentHasCausaleAndIBAN(t *testing.T) {
	d, svc, _, mail := setupTestDispatcher(t)
	res := submitLupiBlu(t, svc)

	out, err := svc.Transition(context.Background(), res.RegistrationID, workflow.StatusWaitingPayment, "", "op")
	if err != nil {
		t.Fatal(err)
	}
	d.Dispatch(context.Background(), res.RegistrationID, out.Actions)

	if len(mail.sent) != 1 {
		t.Fatalf("期望发送 1 封邮件，实际 %d", len(mail.sent))
	}
	body := mail.sent[0].Body
	for _, want := range []string{
		"Causale: ALIENTU26 – SQUADRA – " + res.Code + " – ROSSI",
		"IBAN: IT60X0542811101000000123456",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("正文缺少 %q:\n%s", want, body)
		}
	}
}

func TestActionDispatcher_FailuresAreSwallowed(t *testing.T) {
	d, svc, mocks, mail := setupTestDispatcher(t)
	res := submitLupiBlu(t, svc)
	mail.err = errors.New("smtp down")

	// 发送失败、未知动作、不存在的报名都只记录日志
	d.Dispatch(context.Background(), res.RegistrationID, []workflow.Action{
		{Type: workflow.ActionSendEmail, Template: "received"},
		{Type: "webhook", Template: "x"},
	})
	d.Dispatch(context.Background(), "missing", []workflow.Action{{Type: workflow.ActionSendEmail, Template: "received"}})

	if len(mail.sent) != 0 {
		t.Error("不应有邮件发送成功")
	}
	reg, _ := mocks.registrations.GetByID(context.Background(), res.RegistrationID)
	if reg.Status != "received" {
		t.Error("动作失败不应影响已提交的状态")
	}
}

func TestActionDispatcher_PanicIsRecovered(t *testing.T) {
	d, svc, _, mail := setupTestDispatcher(t)
	res := submitLupiBlu(t, svc)
	mail.panicOnce = true

	// 第一个动作 panic，第二个仍然执行
	d.Dispatch(context.Background(), res.RegistrationID, []workflow.Action{
		{Type: workflow.ActionSendEmail, Template: "received"},
		{Type: workflow.ActionSendEmail, Template: "received"},
	})

	if len(mail.sent) != 1 {
		t.Errorf("期望 panic 后继续发送 1 封邮件，实际 %d", len(mail.sent))
	}
}

func TestActionDispatcher_InvalidEmailSkipped(t *testing.T) {
	d, svc, mocks, mail := setupTestDispatcher(t)
	res := submitLupiBlu(t, svc)
	_ = mocks.registrations.UpdateContact(context.Background(), res.RegistrationID, "Marco Rossi", "not-an-email", "")

	d.Dispatch(context.Background(), res.RegistrationID, res.Actions)
	if len(mail.sent) != 0 {
		t.Error("邮箱无效时不应发送")
	}
}

func TestActionDispatcher_GenericFallback(t *testing.T) {
	d, svc, _, mail := setupTestDispatcher(t)
	res := submitLupiBlu(t, svc)

	d.Dispatch(context.Background(), res.RegistrationID, []workflow.Action{{Type: workflow.ActionSendEmail, Template: "reminder"}})
	if len(mail.sent) != 1 {
		t.Fatalf("缺少模板时应发送通用通知，实际 %d 封", len(mail.sent))
	}
	if !strings.Contains(mail.sent[0].Subject, "Notifica ["+res.Code+"]") {
		t.Errorf("通用通知主题错误: %s", mail.sent[0].Subject)
	}
}

func TestFormatEuro(t *testing.T) {
	cases := map[string]string{
		"0":       "0,00",
		"69":      "69,00",
		"1234.5":  "1.234,50",
		"1000000": "1.000.000,00",
		"-12.3":   "-12,30",
	}
	for in, want := range cases {
		if got := formatEuro(decimal.RequireFromString(in)); got != want {
			t.Errorf("formatEuro(%s) = %s，期望 %s", in, got, want)
		}
	}
}
