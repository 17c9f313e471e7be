package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kimeia/alientu-engine/config"
	"github.com/kimeia/alientu-engine/internal/model"
	"github.com/kimeia/alientu-engine/internal/repository"
	"github.com/kimeia/alientu-engine/internal/workflow"
	"github.com/kimeia/alientu-engine/pkg/mailer"
)

//go:embed emails
var emailFS embed.FS

// dispatchTimeout 单次提交后动作的总时限，与请求的取消无关
const dispatchTimeout = 30 * time.Second

// ActionDispatcher 执行状态变更提交后的动作（目前只有 send_email）。
// 所有失败只写日志，不影响已经提交的操作。
type ActionDispatcher interface {
	Dispatch(ctx context.Context, registrationID string, actions []workflow.Action)
}

type actionDispatcher struct {
	cfg       *config.Config
	repo      *repository.Repository
	mail      mailer.Mailer
	templates map[string]*template.Template // key: template_id/名称
	logger    *zap.Logger
}

// NewActionDispatcher 创建 ActionDispatcher，并加载内置邮件模板
func NewActionDispatcher(cfg *config.Config, repo *repository.Repository, mail mailer.Mailer, logger *zap.Logger) ActionDispatcher {
	templates, err := loadEmailTemplates(emailFS)
	if err != nil {
		// 模板随二进制发布，解析失败属于构建问题
		logger.Error("加载邮件模板失败", zap.Error(err))
	}
	return &actionDispatcher{
		cfg:       cfg,
		repo:      repo,
		mail:      mail,
		templates: templates,
		logger:    logger,
	}
}

// loadEmailTemplates 解析 emails/<template_id>/<名称>.tmpl
func loadEmailTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	out := make(map[string]*template.Template)
	files, err := fs.Glob(fsys, "emails/*/*.tmpl")
	if err != nil {
		return out, err
	}
	for _, f := range files {
		tpl, err := template.ParseFS(fsys, f)
		if err != nil {
			return out, fmt.Errorf("解析 %s: %w", f, err)
		}
		key := path.Base(path.Dir(f)) + "/" + strings.TrimSuffix(path.Base(f), ".tmpl")
		out[key] = tpl
	}
	return out, nil
}

func (d *actionDispatcher) Dispatch(ctx context.Context, registrationID string, actions []workflow.Action) {
	if len(actions) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	for _, a := range actions {
		d.run(ctx, registrationID, a)
	}
}

// run 执行单个动作；panic 被捕获并记录，不影响后续动作
func (d *actionDispatcher) run(ctx context.Context, registrationID string, a workflow.Action) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("提交后动作发生 panic",
				zap.String("registration_id", registrationID),
				zap.String("type", a.Type),
				zap.String("template", a.Template),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	switch a.Type {
	case workflow.ActionSendEmail:
		if err := d.sendEmail(ctx, registrationID, a.Template); err != nil {
			d.logger.Warn("提交后动作执行失败",
				zap.String("registration_id", registrationID),
				zap.String("type", a.Type),
				zap.String("template", a.Template),
				zap.Error(err))
		}
	default:
		d.logger.Warn("未知的提交后动作类型，已跳过",
			zap.String("registration_id", registrationID), zap.String("type", a.Type))
	}
}

// emailData 模板可用字段
type emailData struct {
	EventName string
	Code      string
	Name      string
	TypeLabel string
	Status    string
	Total     string
	Causale   string
	IBAN      string
}

func (d *actionDispatcher) sendEmail(ctx context.Context, registrationID, name string) error {
	reg, err := d.repo.Registration.GetByID(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("查询报名失败: %w", err)
	}
	if !workflow.ValidEmail(reg.ReferenteEmail) {
		return fmt.Errorf("负责人邮箱无效: %q", reg.ReferenteEmail)
	}

	msg, err := d.render(reg, name)
	if err != nil {
		return err
	}
	return d.mail.Send(ctx, msg)
}

// render 渲染主题与正文；活动没有对应模板时使用通用通知
func (d *actionDispatcher) render(reg *model.Registration, name string) (*mailer.Message, error) {
	data := emailData{
		EventName: "Alientu",
		Code:      reg.Code,
		Name:      reg.ReferenteName,
		TypeLabel: workflow.RegistrationType(reg.Type).Label(),
		Status:    workflow.Status(reg.Status).Label(),
		Total:     formatEuro(reg.TotalFinal),
		Causale:   causaleFor(reg),
	}
	templateID := ""
	if camp, ok := d.cfg.Campaign(reg.CampaignID); ok {
		templateID = camp.TemplateID
		data.IBAN = camp.IBAN
		if camp.EventName != "" {
			data.EventName = camp.EventName
		}
	}

	tpl, ok := d.templates[templateID+"/"+name]
	if !ok {
		return &mailer.Message{
			To:      reg.ReferenteEmail,
			Subject: fmt.Sprintf("%s – Notifica [%s]", data.EventName, reg.Code),
			Body:    fmt.Sprintf("Notifica %s\n\nCodice iscrizione: %s\nStato: %s\n\nGrazie.\n", data.EventName, reg.Code, data.Status),
		}, nil
	}

	var subject, body bytes.Buffer
	if err := tpl.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, fmt.Errorf("渲染邮件主题失败: %w", err)
	}
	if err := tpl.ExecuteTemplate(&body, "body", data); err != nil {
		return nil, fmt.Errorf("渲染邮件正文失败: %w", err)
	}
	return &mailer.Message{
		To:      reg.ReferenteEmail,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}

// formatEuro 意大利格式金额：1.234,50
func formatEuro(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}
