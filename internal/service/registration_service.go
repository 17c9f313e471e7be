package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/config"
	"github.com/kimeia/alientu-engine/internal/dto"
	"github.com/kimeia/alientu-engine/internal/model"
	"github.com/kimeia/alientu-engine/internal/repository"
	"github.com/kimeia/alientu-engine/internal/workflow"
	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
)

// ── 报名模块业务错误 ──

var (
	// ErrInternal 事务失败等内部错误的对外提示，原因只写日志
	ErrInternal             = errors.New("Errore interno. Riprova o contatta l'organizzazione.")
	ErrCampaignNotFound     = errors.New("Campagna non trovata.")
	ErrRegistrationNotFound = errors.New("Iscrizione non trovata.")
	ErrParticipantNotFound  = errors.New("Partecipante non trovato.")
	ErrRegistrationArchived = errors.New("Iscrizione archiviata: modifiche non consentite.")
	ErrEmptyNote            = errors.New("La nota non può essere vuota.")
	ErrInvalidNoteKind      = errors.New("Tipo di nota non valido.")

	errTeamNameMissing = errors.New("Nome squadra mancante.")
	errUnknownType     = errors.New("tipo iscrizione sconosciuto")
)

// 审计日志的 triggered_by
const (
	TriggeredByAPI    = "api"
	TriggeredBySystem = "system"
)

// NoteKind 运营备注类型
type NoteKind string

const (
	NoteInfo    NoteKind = "info"
	NotePayment NoteKind = "payment"
	NoteContact NoteKind = "contact"
)

func (k NoteKind) tag() (string, bool) {
	switch k {
	case NoteInfo:
		return "[INFO]", true
	case NotePayment:
		return "[PAYMENT]", true
	case NoteContact:
		return "[CONTACT]", true
	}
	return "", false
}

// CreateInput 创建报名的输入；活动参数由服务端配置解析
type CreateInput struct {
	CampaignID string
	EventID    string
	CodePrefix string
	Prices     workflow.Prices
	Normalized *workflow.Normalized
	Raw        []byte
}

// CreateResult 创建结果；Actions 由调用方在提交后执行
type CreateResult struct {
	RegistrationID string
	Code           string
	Status         workflow.Status
	Totals         workflow.Totals
	Actions        []workflow.Action
}

// TransitionResult 状态变更结果
type TransitionResult struct {
	From    workflow.Status
	To      workflow.Status
	Actions []workflow.Action
}

// RegistrationService 报名业务接口
type RegistrationService interface {
	// Submit 公开提交：解析活动、规范化、校验并创建
	Submit(ctx context.Context, campaignID string, raw []byte) (*CreateResult, error)
	Create(ctx context.Context, in *CreateInput) (*CreateResult, error)

	Transition(ctx context.Context, id string, to workflow.Status, note, actor string) (*TransitionResult, error)
	AvailableTransitions(status string) []string
	AddNote(ctx context.Context, id string, kind NoteKind, text, actor string) error
	History(ctx context.Context, id string) ([]model.RegistrationLog, error)

	List(ctx context.Context, req *dto.RegistrationListRequest) ([]dto.RegistrationSummary, int64, error)
	Get(ctx context.Context, id string) (*dto.RegistrationDetail, error)
	GetByCode(ctx context.Context, code string) (*dto.PublicStatusResponse, error)
	UpdateContact(ctx context.Context, id string, req *dto.UpdateContactRequest, actor string) error
	UpdateParticipant(ctx context.Context, id string, req *dto.UpdateParticipantRequest, actor string) error
}

type registrationService struct {
	cfg     *config.Config
	repo    *repository.Repository
	actions workflow.ActionMap
	codes   *workflow.CodeGenerator
	logger  *zap.Logger
}

// NewRegistrationService 创建 RegistrationService 实例
func NewRegistrationService(
	cfg *config.Config,
	repo *repository.Repository,
	actions workflow.ActionMap,
	codes *workflow.CodeGenerator,
	logger *zap.Logger,
) RegistrationService {
	return &registrationService{
		cfg:     cfg,
		repo:    repo,
		actions: actions,
		codes:   codes,
		logger:  logger,
	}
}

// ────────────────────── Submit / Create ──────────────────────

func (s *registrationService) Submit(ctx context.Context, campaignID string, raw []byte) (*CreateResult, error) {
	camp, ok := s.cfg.Campaign(campaignID)
	if !ok {
		return nil, ErrCampaignNotFound
	}

	n := workflow.Normalize(raw)
	if msgs := workflow.ValidatePayload(n); len(msgs) > 0 {
		return nil, workflow.NewValidationError(msgs...)
	}

	game, social := camp.Prices()
	return s.Create(ctx, &CreateInput{
		CampaignID: camp.ID,
		EventID:    camp.EventID,
		CodePrefix: camp.CodePrefix,
		Prices:     workflow.Prices{Game: game, Social: social},
		Normalized: n,
		Raw:        raw,
	})
}

// Create 在一个事务中写入报名、队伍（type=team）、参与者与首条审计日志。
// 唯一索引拒绝编号（存在性检查与插入之间的竞争）时整体重试一次。
func (s *registrationService) Create(ctx context.Context, in *CreateInput) (*CreateResult, error) {
	res, err := s.create(ctx, in)
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		return nil, err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		s.logger.Warn("报名编号冲突，重试创建", zap.String("campaign_id", in.CampaignID))
		res, err = s.create(ctx, in)
	}
	if err != nil {
		s.logger.Error("创建报名失败，事务已回滚",
			zap.String("campaign_id", in.CampaignID), zap.Error(err))
		return nil, ErrInternal
	}
	return res, nil
}

func (s *registrationService) create(ctx context.Context, in *CreateInput) (*CreateResult, error) {
	n := in.Normalized
	if n == nil || n.Type == workflow.TypeUnknown {
		return nil, errUnknownType
	}

	totals := workflow.CalculateFor(n, in.Prices)
	if !totals.WithinMaxAmount() {
		return nil, workflow.NewValidationError("L'importo totale supera il massimo consentito (999999,99 €).")
	}
	persons := n.Participants()
	res := &CreateResult{Status: workflow.StatusReceived, Totals: totals}

	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		code, err := s.codes.Generate(ctx, in.CodePrefix, txRepo.Registration.ExistsCode)
		if err != nil {
			return err
		}

		reg := &model.Registration{
			Code:            code,
			CampaignID:      in.CampaignID,
			EventID:         in.EventID,
			Type:            string(n.Type),
			Status:          string(workflow.StatusReceived),
			TotalMinimum:    totals.Minimum,
			Donation:        totals.Donation,
			TotalFinal:      totals.Final,
			ReferenteName:   n.Referente.FullName(),
			ReferenteEmail:  n.Referente.Email,
			ReferentePhone:  n.Referente.Phone,
			PayloadSnapshot: snapshot(in.Raw),
		}
		if err := txRepo.Registration.Create(ctx, reg); err != nil {
			return fmt.Errorf("写入报名失败: %w", err)
		}

		var teamID *string
		rosterSize := 0
		if te, ok := n.Team(); ok {
			team, err := createTeamFromEntry(ctx, txRepo, reg, te)
			if err != nil {
				return err
			}
			teamID = &team.TeamID
			rosterSize = len(te.Players)
		}

		participants := make([]model.Participant, 0, len(persons))
		for i, p := range persons {
			mp := model.Participant{
				RegistrationID: reg.RegistrationID,
				CampaignID:     reg.CampaignID,
				EventID:        reg.EventID,
				FirstName:      p.FirstName,
				LastName:       p.LastName,
				Email:          p.Email,
				Phone:          p.Phone,
				AgeBand:        p.AgeBand,
				AttendsSocial:  p.AttendsSocial,
				FoodNotes:      p.FoodNotes,
			}
			// 只报名聚餐的负责人不进入队伍
			if teamID != nil && i < rosterSize {
				mp.TeamID = teamID
			}
			participants = append(participants, mp)
		}
		if err := txRepo.Participant.BatchCreate(ctx, participants); err != nil {
			return fmt.Errorf("写入参与者失败: %w", err)
		}

		if err := txRepo.RegistrationLog.Append(ctx, &model.RegistrationLog{
			RegistrationID: reg.RegistrationID,
			ToStatus:       string(workflow.StatusReceived),
			Note:           "Iscrizione ricevuta.",
			TriggeredBy:    TriggeredByAPI,
		}); err != nil {
			return fmt.Errorf("写入审计日志失败: %w", err)
		}

		res.RegistrationID = reg.RegistrationID
		res.Code = code
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Actions = s.actions.For(workflow.StatusReceived)
	return res, nil
}

// createTeamFromEntry 为 type=team 的报名创建队伍并写入首条队伍日志
func createTeamFromEntry(ctx context.Context, txRepo *repository.Repository, reg *model.Registration, te *workflow.TeamEntry) (*model.Team, error) {
	name := strings.TrimSpace(te.Name)
	if name == "" {
		return nil, errTeamNameMissing
	}

	team := &model.Team{
		CampaignID:     reg.CampaignID,
		EventID:        reg.EventID,
		Name:           name,
		Color:          te.Color,
		Capacity:       workflow.TeamCapacityDefault,
		Status:         string(workflow.TeamDraft),
		BannerProvider: te.BannerProvider,
		BannerNotes:    te.BannerNotes,
	}
	if err := txRepo.Team.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("写入队伍失败: %w", err)
	}
	if err := txRepo.TeamLog.Append(ctx, &model.TeamLog{
		TeamID:      team.TeamID,
		ToStatus:    string(workflow.TeamDraft),
		Note:        "Squadra creata dall'iscrizione " + reg.Code + ".",
		TriggeredBy: TriggeredByAPI,
	}); err != nil {
		return nil, fmt.Errorf("写入队伍日志失败: %w", err)
	}
	return team, nil
}

// snapshot 原始提交快照；非法 JSON 以空对象保存
func snapshot(raw []byte) datatypes.JSON {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

// ────────────────────── 状态机 ──────────────────────

// Transition 比较并交换：读取当前状态、检查转换表、条件更新并在同一事务中写审计日志
func (s *registrationService) Transition(ctx context.Context, id string, to workflow.Status, note, actor string) (*TransitionResult, error) {
	reg, err := s.getRegistration(ctx, id)
	if err != nil {
		return nil, err
	}

	from := workflow.Status(reg.Status)
	if err := workflow.RegistrationMachine.Check(from, to); err != nil {
		return nil, err
	}
	if actor == "" {
		actor = TriggeredBySystem
	}

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Registration.UpdateStatus(ctx, id, string(from), string(to)); err != nil {
			return err
		}
		return txRepo.RegistrationLog.Append(ctx, &model.RegistrationLog{
			RegistrationID: id,
			FromStatus:     strPtr(string(from)),
			ToStatus:       string(to),
			Note:           strings.TrimSpace(note),
			TriggeredBy:    actor,
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStaleState) {
			return nil, pkgerrors.ErrStaleState
		}
		s.logger.Error("状态变更失败",
			zap.String("id", id), zap.String("from", string(from)), zap.String("to", string(to)), zap.Error(err))
		return nil, ErrInternal
	}

	return &TransitionResult{From: from, To: to, Actions: s.actions.For(to)}, nil
}

func (s *registrationService) AvailableTransitions(status string) []string {
	next := workflow.RegistrationMachine.Next(workflow.Status(status))
	out := make([]string, 0, len(next))
	for _, st := range next {
		out = append(out, string(st))
	}
	return out
}

// AddNote 运营备注：from == to == 当前状态，不改变状态
func (s *registrationService) AddNote(ctx context.Context, id string, kind NoteKind, text, actor string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyNote
	}
	tag, ok := kind.tag()
	if !ok {
		return ErrInvalidNoteKind
	}

	reg, err := s.getRegistration(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.RegistrationLog.Append(ctx, &model.RegistrationLog{
		RegistrationID: id,
		FromStatus:     strPtr(reg.Status),
		ToStatus:       reg.Status,
		Note:           tag + " " + text,
		TriggeredBy:    actor,
	}); err != nil {
		s.logger.Error("写入运营备注失败", zap.String("id", id), zap.Error(err))
		return ErrInternal
	}
	return nil
}

func (s *registrationService) History(ctx context.Context, id string) ([]model.RegistrationLog, error) {
	if _, err := s.getRegistration(ctx, id); err != nil {
		return nil, err
	}
	logs, err := s.repo.RegistrationLog.ListByRegistration(ctx, id)
	if err != nil {
		s.logger.Error("查询审计日志失败", zap.String("id", id), zap.Error(err))
		return nil, ErrInternal
	}
	return logs, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *registrationService) List(ctx context.Context, req *dto.RegistrationListRequest) ([]dto.RegistrationSummary, int64, error) {
	regs, total, err := s.repo.Registration.List(ctx, repository.RegistrationFilter{
		CampaignID: req.CampaignID,
		Status:     req.Status,
		Type:       req.Type,
		Search:     req.Search,
		SortBy:     req.SortBy,
		SortDesc:   req.Order == "desc",
		Offset:     req.GetOffset(),
		Limit:      req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询报名列表失败", zap.Error(err))
		return nil, 0, ErrInternal
	}

	out := make([]dto.RegistrationSummary, 0, len(regs))
	for i := range regs {
		out = append(out, toRegistrationSummary(&regs[i]))
	}
	return out, total, nil
}

func (s *registrationService) Get(ctx context.Context, id string) (*dto.RegistrationDetail, error) {
	reg, err := s.getRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.RegistrationLog.ListByRegistration(ctx, id)
	if err != nil {
		s.logger.Error("查询审计日志失败", zap.String("id", id), zap.Error(err))
		return nil, ErrInternal
	}

	return &dto.RegistrationDetail{
		RegistrationSummary:  toRegistrationSummary(reg),
		EventID:              reg.EventID,
		ReferentePhone:       reg.ReferentePhone,
		TotalMinimum:         reg.TotalMinimum.StringFixed(2),
		Donation:             reg.Donation.StringFixed(2),
		Causale:              causaleFor(reg),
		UpdatedAt:            reg.UpdatedAt.Format(dto.TimeLayout),
		Participants:         dto.ParticipantsToResponse(reg.Participants),
		History:              dto.RegistrationLogsToResponse(logs),
		AvailableTransitions: s.AvailableTransitions(reg.Status),
	}, nil
}

func (s *registrationService) GetByCode(ctx context.Context, code string) (*dto.PublicStatusResponse, error) {
	reg, err := s.repo.Registration.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		s.logger.Error("按编号查询报名失败", zap.String("code", code), zap.Error(err))
		return nil, ErrInternal
	}

	return &dto.PublicStatusResponse{
		Code:        reg.Code,
		Type:        reg.Type,
		Status:      reg.Status,
		StatusLabel: workflow.Status(reg.Status).Label(),
		TotalFinal:  reg.TotalFinal.StringFixed(2),
		CreatedAt:   reg.CreatedAt.Format(dto.TimeLayout),
	}, nil
}

// ────────────────────── 运营修改 ──────────────────────

func (s *registrationService) UpdateContact(ctx context.Context, id string, req *dto.UpdateContactRequest, actor string) error {
	reg, err := s.getRegistration(ctx, id)
	if err != nil {
		return err
	}
	if reg.Status == string(workflow.StatusArchived) {
		return ErrRegistrationArchived
	}

	name := strings.TrimSpace(req.ReferenteName)
	email := strings.TrimSpace(req.ReferenteEmail)
	phone := strings.TrimSpace(req.ReferentePhone)

	var changed []string
	if name != reg.ReferenteName {
		changed = append(changed, "nome")
	}
	if email != reg.ReferenteEmail {
		changed = append(changed, "email")
	}
	if phone != reg.ReferentePhone {
		changed = append(changed, "telefono")
	}
	if len(changed) == 0 {
		return nil
	}

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Registration.UpdateContact(ctx, id, name, email, phone); err != nil {
			return err
		}
		return txRepo.RegistrationLog.Append(ctx, &model.RegistrationLog{
			RegistrationID: id,
			FromStatus:     strPtr(reg.Status),
			ToStatus:       reg.Status,
			Note:           "[INFO] Contatti referente aggiornati: " + strings.Join(changed, ", ") + ".",
			TriggeredBy:    actor,
		})
	})
	if err != nil {
		s.logger.Error("修改负责人联系方式失败", zap.String("id", id), zap.Error(err))
		return ErrInternal
	}
	return nil
}

func (s *registrationService) UpdateParticipant(ctx context.Context, id string, req *dto.UpdateParticipantRequest, actor string) error {
	p, err := s.repo.Participant.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrParticipantNotFound
		}
		s.logger.Error("查询参与者失败", zap.String("id", id), zap.Error(err))
		return ErrInternal
	}

	if p.TeamID != nil {
		team, err := s.repo.Team.GetByID(ctx, *p.TeamID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询队伍失败", zap.String("team_id", *p.TeamID), zap.Error(err))
			return ErrInternal
		}
		if team != nil && team.Status == string(workflow.TeamLocked) {
			return ErrTeamLocked
		}
	}

	reg, err := s.getRegistration(ctx, p.RegistrationID)
	if err != nil {
		return err
	}
	if reg.Status == string(workflow.StatusArchived) {
		return ErrRegistrationArchived
	}

	p.FirstName = strings.TrimSpace(req.FirstName)
	p.LastName = strings.TrimSpace(req.LastName)
	p.Email = strings.TrimSpace(req.Email)
	p.Phone = strings.TrimSpace(req.Phone)
	p.AgeBand = req.AgeBand
	p.AttendsSocial = req.AttendsSocial
	p.FoodNotes = strings.TrimSpace(req.FoodNotes)

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Participant.Update(ctx, p); err != nil {
			return err
		}
		return txRepo.RegistrationLog.Append(ctx, &model.RegistrationLog{
			RegistrationID: reg.RegistrationID,
			FromStatus:     strPtr(reg.Status),
			ToStatus:       reg.Status,
			Note:           "[INFO] Partecipante aggiornato: " + p.FullName() + ".",
			TriggeredBy:    actor,
		})
	})
	if err != nil {
		s.logger.Error("修改参与者失败", zap.String("id", id), zap.Error(err))
		return ErrInternal
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *registrationService) getRegistration(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := s.repo.Registration.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		s.logger.Error("查询报名失败", zap.String("id", id), zap.Error(err))
		return nil, ErrInternal
	}
	return reg, nil
}

func toRegistrationSummary(reg *model.Registration) dto.RegistrationSummary {
	return dto.RegistrationSummary{
		ID:             reg.RegistrationID,
		Code:           reg.Code,
		CampaignID:     reg.CampaignID,
		Type:           reg.Type,
		Status:         reg.Status,
		StatusLabel:    workflow.Status(reg.Status).Label(),
		ReferenteName:  reg.ReferenteName,
		ReferenteEmail: reg.ReferenteEmail,
		TotalFinal:     reg.TotalFinal.StringFixed(2),
		CreatedAt:      reg.CreatedAt.Format(dto.TimeLayout),
	}
}

// causaleFor 银行转账用途；姓氏取 referente_name 第一个空格之后的部分
func causaleFor(reg *model.Registration) string {
	surname := ""
	if i := strings.IndexByte(strings.TrimSpace(reg.ReferenteName), ' '); i > 0 {
		surname = strings.TrimSpace(reg.ReferenteName)[i+1:]
	}
	return workflow.Causale(reg.Code, workflow.RegistrationType(reg.Type), surname)
}
