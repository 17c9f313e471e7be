package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/dto"
	"github.com/kimeia/alientu-engine/internal/model"
	"github.com/kimeia/alientu-engine/internal/repository"
	"github.com/kimeia/alientu-engine/internal/workflow"
	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
)

// ── 队伍模块业务错误 ──

var (
	ErrTeamNotFound         = errors.New("Squadra non trovata.")
	ErrTeamLocked           = errors.New("Squadra bloccata: modifiche non consentite.")
	ErrTeamNameRequired     = errors.New("Nome squadra mancante.")
	ErrTeamFull             = errors.New("Capienza della squadra superata.")
	ErrCapacityBelowMembers = errors.New("La capienza non può essere inferiore al numero di componenti.")
	ErrNoParticipants       = errors.New("Nessun partecipante selezionato.")
	ErrParticipantAssigned  = errors.New("Alcuni partecipanti sono già assegnati a una squadra.")
	ErrParticipantNotInTeam = errors.New("Alcuni partecipanti non appartengono alla squadra.")
	ErrSameTeam             = errors.New("La squadra di origine e quella di destinazione coincidono.")
)

// TeamService 队伍业务接口
type TeamService interface {
	List(ctx context.Context, campaignID string) ([]dto.TeamSummary, error)
	Get(ctx context.Context, id string) (*dto.TeamDetail, error)
	CreateFromRegistration(ctx context.Context, req *dto.CreateTeamRequest, actor string) (*dto.TeamSummary, error)
	UpdateDetails(ctx context.Context, id string, req *dto.UpdateTeamRequest, actor string) error
	AddMembers(ctx context.Context, id string, participantIDs []string, actor string) error
	RemoveMembers(ctx context.Context, id string, participantIDs []string, actor string) error
	MoveMembers(ctx context.Context, fromID, toID string, participantIDs []string, actor string) error
	Delete(ctx context.Context, id string, actor string) error
	Transition(ctx context.Context, id string, to workflow.TeamStatus, note, actor string) (workflow.TeamStatus, error)
}

type teamService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeamService 创建 TeamService 实例
func NewTeamService(repo *repository.Repository, logger *zap.Logger) TeamService {
	return &teamService{repo: repo, logger: logger}
}

// ────────────────────── 查询 ──────────────────────

func (s *teamService) List(ctx context.Context, campaignID string) ([]dto.TeamSummary, error) {
	rows, err := s.repo.Team.List(ctx, campaignID)
	if err != nil {
		s.logger.Error("查询队伍列表失败", zap.Error(err))
		return nil, ErrInternal
	}
	out := make([]dto.TeamSummary, 0, len(rows))
	for i := range rows {
		out = append(out, toTeamSummary(&rows[i].Team, rows[i].MemberCount))
	}
	return out, nil
}

func (s *teamService) Get(ctx context.Context, id string) (*dto.TeamDetail, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.repo.TeamLog.ListByTeam(ctx, id)
	if err != nil {
		s.logger.Error("查询队伍日志失败", zap.String("id", id), zap.Error(err))
		return nil, ErrInternal
	}

	next := workflow.TeamMachine.Next(workflow.TeamStatus(team.Status))
	transitions := make([]string, 0, len(next))
	for _, st := range next {
		transitions = append(transitions, string(st))
	}

	return &dto.TeamDetail{
		TeamSummary:          toTeamSummary(team, len(team.Members)),
		EventID:              team.EventID,
		BannerProvider:       team.BannerProvider,
		BannerNotes:          team.BannerNotes,
		Notes:                team.Notes,
		Members:              dto.ParticipantsToResponse(team.Members),
		History:              dto.TeamLogsToResponse(logs),
		AvailableTransitions: transitions,
	}, nil
}

// ────────────────────── 创建 ──────────────────────

// CreateFromRegistration 由一条报名的参与者组建队伍。
// mode=all 取全部未分配参与者；mode=selected 取指定参与者，且必须属于该报名并且尚未分配。
func (s *teamService) CreateFromRegistration(ctx context.Context, req *dto.CreateTeamRequest, actor string) (*dto.TeamSummary, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}

	reg, err := s.repo.Registration.GetByID(ctx, req.RegistrationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		s.logger.Error("查询报名失败", zap.String("id", req.RegistrationID), zap.Error(err))
		return nil, ErrInternal
	}

	var ids []string
	switch req.Mode {
	case "all":
		for _, p := range reg.Participants {
			if p.TeamID == nil {
				ids = append(ids, p.ParticipantID)
			}
		}
	default:
		owned := make(map[string]*model.Participant, len(reg.Participants))
		for i := range reg.Participants {
			owned[reg.Participants[i].ParticipantID] = &reg.Participants[i]
		}
		for _, id := range uniqueIDs(req.ParticipantIDs) {
			p, ok := owned[id]
			if !ok {
				return nil, ErrParticipantNotFound
			}
			if p.TeamID != nil {
				return nil, ErrParticipantAssigned
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoParticipants
	}

	capacity := workflow.ClampCapacity(req.Capacity)
	if len(ids) > capacity {
		return nil, ErrTeamFull
	}

	team := &model.Team{
		CampaignID: reg.CampaignID,
		EventID:    reg.EventID,
		Name:       name,
		Color:      strings.TrimSpace(req.Color),
		Capacity:   capacity,
		Status:     string(workflow.TeamDraft),
	}

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Team.Create(ctx, team); err != nil {
			return err
		}
		if err := txRepo.Participant.AssignTeam(ctx, ids, team.TeamID); err != nil {
			return err
		}
		return txRepo.TeamLog.Append(ctx, &model.TeamLog{
			TeamID:      team.TeamID,
			ToStatus:    team.Status,
			Note:        fmt.Sprintf("Squadra creata dall'iscrizione %s con %d componenti.", reg.Code, len(ids)),
			TriggeredBy: actor,
		})
	})
	if err != nil {
		s.logger.Error("创建队伍失败", zap.String("registration_id", reg.RegistrationID), zap.Error(err))
		return nil, ErrInternal
	}

	summary := toTeamSummary(team, len(ids))
	return &summary, nil
}

// ────────────────────── 修改 ──────────────────────
//
// 锁定状态与容量在 writeTeam 的事务内重新检查，外层的 getUnlockedTeam 只用于提前失败。

func (s *teamService) UpdateDetails(ctx context.Context, id string, req *dto.UpdateTeamRequest, actor string) error {
	if _, err := s.getUnlockedTeam(ctx, id); err != nil {
		return err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ErrTeamNameRequired
	}
	capacity := workflow.ClampCapacity(req.Capacity)

	return s.writeTeam(ctx, id, actor, func(txRepo *repository.Repository, team *model.Team) (string, error) {
		if capacity < len(team.Members) {
			return "", ErrCapacityBelowMembers
		}
		team.Name = name
		team.Color = strings.TrimSpace(req.Color)
		team.Capacity = capacity
		team.BannerProvider = strings.TrimSpace(req.BannerProvider)
		team.BannerNotes = strings.TrimSpace(req.BannerNotes)
		team.Notes = strings.TrimSpace(req.Notes)
		return "Dati squadra aggiornati.", txRepo.Team.Update(ctx, team)
	})
}

func (s *teamService) AddMembers(ctx context.Context, id string, participantIDs []string, actor string) error {
	if _, err := s.getUnlockedTeam(ctx, id); err != nil {
		return err
	}

	ids := uniqueIDs(participantIDs)
	if len(ids) == 0 {
		return ErrNoParticipants
	}

	return s.writeTeam(ctx, id, actor, func(txRepo *repository.Repository, team *model.Team) (string, error) {
		ps, err := txRepo.Participant.GetByIDs(ctx, ids)
		if err != nil {
			return "", err
		}
		if len(ps) != len(ids) {
			return "", ErrParticipantNotFound
		}
		for _, p := range ps {
			if p.TeamID != nil {
				return "", ErrParticipantAssigned
			}
			if p.CampaignID != team.CampaignID {
				return "", ErrParticipantNotFound
			}
		}
		if len(team.Members)+len(ids) > team.Capacity {
			return "", ErrTeamFull
		}
		return fmt.Sprintf("Aggiunti %d componenti.", len(ids)), txRepo.Participant.AssignTeam(ctx, ids, team.TeamID)
	})
}

func (s *teamService) RemoveMembers(ctx context.Context, id string, participantIDs []string, actor string) error {
	if _, err := s.getUnlockedTeam(ctx, id); err != nil {
		return err
	}

	ids := uniqueIDs(participantIDs)
	if len(ids) == 0 {
		return ErrNoParticipants
	}

	return s.writeTeam(ctx, id, actor, func(txRepo *repository.Repository, team *model.Team) (string, error) {
		if !allMembers(team, ids) {
			return "", ErrParticipantNotInTeam
		}
		return fmt.Sprintf("Rimossi %d componenti.", len(ids)), txRepo.Participant.UnassignTeam(ctx, ids)
	})
}

func (s *teamService) MoveMembers(ctx context.Context, fromID, toID string, participantIDs []string, actor string) error {
	if fromID == toID {
		return ErrSameTeam
	}
	if _, err := s.getUnlockedTeam(ctx, fromID); err != nil {
		return err
	}
	if _, err := s.getUnlockedTeam(ctx, toID); err != nil {
		return err
	}

	ids := uniqueIDs(participantIDs)
	if len(ids) == 0 {
		return ErrNoParticipants
	}

	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		// 固定加锁顺序，避免两个方向相反的移动互相等待
		first, second := fromID, toID
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*model.Team, 2)
		for _, id := range []string{first, second} {
			team, err := s.lockTeam(ctx, txRepo, id)
			if err != nil {
				return err
			}
			locked[id] = team
		}
		from, to := locked[fromID], locked[toID]

		if !allMembers(from, ids) {
			return ErrParticipantNotInTeam
		}
		if len(to.Members)+len(ids) > to.Capacity {
			return ErrTeamFull
		}
		if err := txRepo.Participant.AssignTeam(ctx, ids, to.TeamID); err != nil {
			return err
		}
		if err := txRepo.TeamLog.Append(ctx, noteEntry(from, fmt.Sprintf("Spostati %d componenti in %s.", len(ids), to.Name), actor)); err != nil {
			return err
		}
		return txRepo.TeamLog.Append(ctx, noteEntry(to, fmt.Sprintf("Ricevuti %d componenti da %s.", len(ids), from.Name), actor))
	})
	return s.teamWriteError(ctx, fromID, err)
}

// Delete 先解除全部成员分配再删除队伍，同一事务
func (s *teamService) Delete(ctx context.Context, id string, actor string) error {
	if _, err := s.getUnlockedTeam(ctx, id); err != nil {
		return err
	}

	return s.writeTeam(ctx, id, actor, func(txRepo *repository.Repository, team *model.Team) (string, error) {
		if err := txRepo.Participant.ClearTeam(ctx, id); err != nil {
			return "", err
		}
		note := fmt.Sprintf("Squadra eliminata (%d componenti liberati).", len(team.Members))
		return note, txRepo.Team.Delete(ctx, id)
	})
}

// ────────────────────── 状态机 ──────────────────────

func (s *teamService) Transition(ctx context.Context, id string, to workflow.TeamStatus, note, actor string) (workflow.TeamStatus, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return "", err
	}

	from := workflow.TeamStatus(team.Status)
	if err := workflow.TeamMachine.Check(from, to); err != nil {
		return "", err
	}

	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if err := txRepo.Team.UpdateStatus(ctx, id, string(from), string(to)); err != nil {
			return err
		}
		return txRepo.TeamLog.Append(ctx, &model.TeamLog{
			TeamID:      id,
			FromStatus:  strPtr(string(from)),
			ToStatus:    string(to),
			Note:        strings.TrimSpace(note),
			TriggeredBy: actor,
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStaleState) {
			return "", pkgerrors.ErrStaleState
		}
		s.logger.Error("队伍状态变更失败", zap.String("id", id), zap.Error(err))
		return "", ErrInternal
	}
	return from, nil
}

// ── 内部辅助方法 ──

func (s *teamService) getTeam(ctx context.Context, id string) (*model.Team, error) {
	team, err := s.repo.Team.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询队伍失败", zap.String("id", id), zap.Error(err))
		return nil, ErrInternal
	}
	return team, nil
}

// getUnlockedTeam locked 状态下拒绝一切成员与信息修改
func (s *teamService) getUnlockedTeam(ctx context.Context, id string) (*model.Team, error) {
	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	if team.Status == string(workflow.TeamLocked) {
		return nil, ErrTeamLocked
	}
	return team, nil
}

// writeTeam 在同一事务中锁定队伍、执行写操作并追加 write 返回的备注
func (s *teamService) writeTeam(ctx context.Context, id, actor string, write func(txRepo *repository.Repository, team *model.Team) (string, error)) error {
	err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		team, err := s.lockTeam(ctx, txRepo, id)
		if err != nil {
			return err
		}
		note, err := write(txRepo, team)
		if err != nil {
			return err
		}
		return txRepo.TeamLog.Append(ctx, noteEntry(team, note, actor))
	})
	return s.teamWriteError(ctx, id, err)
}

// lockTeam 事务内确认队伍未锁定并持有行锁，随后重新读取状态与成员
func (s *teamService) lockTeam(ctx context.Context, txRepo *repository.Repository, id string) (*model.Team, error) {
	if err := txRepo.Team.TouchUnless(ctx, id, string(workflow.TeamLocked)); err != nil {
		if errors.Is(err, pkgerrors.ErrStaleState) {
			return nil, errTeamGuard{id: id}
		}
		return nil, err
	}
	return txRepo.Team.GetByID(ctx, id)
}

// errTeamGuard 行锁条件不满足：队伍已锁定或已被删除
type errTeamGuard struct{ id string }

func (e errTeamGuard) Error() string { return "队伍已锁定或已删除: " + e.id }

var teamBusinessErrors = []error{
	ErrTeamFull,
	ErrCapacityBelowMembers,
	ErrParticipantNotFound,
	ErrParticipantAssigned,
	ErrParticipantNotInTeam,
}

// teamWriteError 业务错误原样返回；行锁条件不满足时按当前状态区分已锁定与不存在
func (s *teamService) teamWriteError(ctx context.Context, id string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range teamBusinessErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	var guard errTeamGuard
	if errors.As(err, &guard) {
		if _, gerr := s.repo.Team.GetByID(ctx, guard.id); errors.Is(gerr, gorm.ErrRecordNotFound) {
			return ErrTeamNotFound
		}
		return ErrTeamLocked
	}
	s.logger.Error("修改队伍失败", zap.String("id", id), zap.Error(err))
	return ErrInternal
}

func noteEntry(team *model.Team, note, actor string) *model.TeamLog {
	return &model.TeamLog{
		TeamID:      team.TeamID,
		FromStatus:  strPtr(team.Status),
		ToStatus:    team.Status,
		Note:        note,
		TriggeredBy: actor,
	}
}

func allMembers(team *model.Team, ids []string) bool {
	members := make(map[string]bool, len(team.Members))
	for _, m := range team.Members {
		members[m.ParticipantID] = true
	}
	for _, id := range ids {
		if !members[id] {
			return false
		}
	}
	return true
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toTeamSummary(team *model.Team, memberCount int) dto.TeamSummary {
	return dto.TeamSummary{
		ID:          team.TeamID,
		CampaignID:  team.CampaignID,
		Name:        team.Name,
		Color:       team.Color,
		Capacity:    team.Capacity,
		Status:      team.Status,
		MemberCount: memberCount,
	}
}
