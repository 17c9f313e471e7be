package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/model"
	"github.com/kimeia/alientu-engine/internal/repository"
	pkgerrors "github.com/kimeia/alientu-engine/pkg/errors"
)

// ── Mock 聚合 ──

type mockRepos struct {
	registrations *mockRegistrationRepo
	participants  *mockParticipantRepo
	teams         *mockTeamRepo
	regLogs       *mockRegistrationLogRepo
	teamLogs      *mockTeamLogRepo
}

// newMockRepository 构造不持有数据库连接的 Repository 聚合（inTx 直接执行）
func newMockRepository() (*repository.Repository, *mockRepos) {
	participants := &mockParticipantRepo{items: make(map[string]*model.Participant)}
	m := &mockRepos{
		registrations: &mockRegistrationRepo{items: make(map[string]*model.Registration), participants: participants},
		participants:  participants,
		teams:         &mockTeamRepo{items: make(map[string]*model.Team), participants: participants},
		regLogs:       &mockRegistrationLogRepo{},
		teamLogs:      &mockTeamLogRepo{},
	}
	repo := &repository.Repository{
		Registration:    m.registrations,
		Participant:     m.participants,
		Team:            m.teams,
		RegistrationLog: m.regLogs,
		TeamLog:         m.teamLogs,
	}
	return repo, m
}

var mockSeq struct {
	sync.Mutex
	n int
}

func nextMockID(prefix string) string {
	mockSeq.Lock()
	defer mockSeq.Unlock()
	mockSeq.n++
	return fmt.Sprintf("%s-%d", prefix, mockSeq.n)
}

// ── Mock RegistrationRepository ──

type mockRegistrationRepo struct {
	mu           sync.Mutex
	items        map[string]*model.Registration
	participants *mockParticipantRepo

	// beforeRead 在 GetByID 返回前调用，用于构造并发读
	beforeRead func()
}

func (m *mockRegistrationRepo) Create(_ context.Context, reg *model.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Code == reg.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	if reg.RegistrationID == "" {
		reg.RegistrationID = nextMockID("reg")
	}
	now := time.Now()
	reg.CreatedAt, reg.UpdatedAt = now, now
	cp := *reg
	cp.Participants = nil
	m.items[reg.RegistrationID] = &cp
	return nil
}

func (m *mockRegistrationRepo) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	m.mu.Lock()
	r, ok := m.items[id]
	var cp model.Registration
	if ok {
		cp = *r
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if m.beforeRead != nil {
		m.beforeRead()
	}
	cp.Participants, _ = m.participants.ListByRegistration(ctx, id)
	return &cp, nil
}

func (m *mockRegistrationRepo) GetByCode(_ context.Context, code string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, r := range m.items {
		if r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegistrationRepo) ExistsCode(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRegistrationRepo) UpdateStatus(_ context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok || r.Status != from {
		return pkgerrors.ErrStaleState
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return nil
}

func (m *mockRegistrationRepo) UpdateContact(_ context.Context, id, name, email, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.ReferenteName, r.ReferenteEmail, r.ReferentePhone = name, email, phone
	return nil
}

func (m *mockRegistrationRepo) List(ctx context.Context, f repository.RegistrationFilter) ([]model.Registration, int64, error) {
	all, _ := m.ListByCampaign(ctx, f.CampaignID)
	var result []model.Registration
	for _, r := range all {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(r.Code+" "+r.ReferenteName+" "+r.ReferenteEmail), strings.ToLower(f.Search)) {
			continue
		}
		result = append(result, r)
	}
	total := int64(len(result))
	if f.Offset >= len(result) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if f.Limit <= 0 || end > len(result) {
		end = len(result)
	}
	return result[f.Offset:end], total, nil
}

func (m *mockRegistrationRepo) ListByCampaign(_ context.Context, campaignID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Registration
	for _, r := range m.items {
		if campaignID == "" || r.CampaignID == campaignID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

// ── Mock ParticipantRepository ──

type mockParticipantRepo struct {
	mu    sync.Mutex
	items map[string]*model.Participant
	order []string

	// failBatch 非空时 BatchCreate 返回该错误
	failBatch error
}

func (m *mockParticipantRepo) BatchCreate(_ context.Context, participants []model.Participant) error {
	if m.failBatch != nil {
		return m.failBatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range participants {
		if participants[i].ParticipantID == "" {
			participants[i].ParticipantID = nextMockID("p")
		}
		cp := participants[i]
		m.items[cp.ParticipantID] = &cp
		m.order = append(m.order, cp.ParticipantID)
	}
	return nil
}

func (m *mockParticipantRepo) GetByID(_ context.Context, id string) (*model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockParticipantRepo) GetByIDs(_ context.Context, ids []string) ([]model.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Participant
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockParticipantRepo) filter(keep func(p *model.Participant) bool) []model.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Participant
	for _, id := range m.order {
		if p, ok := m.items[id]; ok && keep(p) {
			result = append(result, *p)
		}
	}
	return result
}

func (m *mockParticipantRepo) ListByRegistration(_ context.Context, registrationID string) ([]model.Participant, error) {
	return m.filter(func(p *model.Participant) bool { return p.RegistrationID == registrationID }), nil
}

func (m *mockParticipantRepo) ListByTeam(_ context.Context, teamID string) ([]model.Participant, error) {
	return m.filter(func(p *model.Participant) bool { return p.TeamID != nil && *p.TeamID == teamID }), nil
}

func (m *mockParticipantRepo) ListByCampaign(_ context.Context, campaignID string) ([]model.Participant, error) {
	return m.filter(func(p *model.Participant) bool { return p.CampaignID == campaignID }), nil
}

func (m *mockParticipantRepo) Update(_ context.Context, p *model.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[p.ParticipantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	teamID := cur.TeamID
	cp := *p
	cp.TeamID = teamID
	m.items[p.ParticipantID] = &cp
	return nil
}

func (m *mockParticipantRepo) AssignTeam(_ context.Context, ids []string, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			tid := teamID
			p.TeamID = &tid
		}
	}
	return nil
}

func (m *mockParticipantRepo) UnassignTeam(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			p.TeamID = nil
		}
	}
	return nil
}

func (m *mockParticipantRepo) ClearTeam(_ context.Context, teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.TeamID != nil && *p.TeamID == teamID {
			p.TeamID = nil
		}
	}
	return nil
}

// ── Mock TeamRepository ──

type mockTeamRepo struct {
	mu           sync.Mutex
	items        map[string]*model.Team
	participants *mockParticipantRepo

	// beforeGuard 在 TouchUnless 判断前调用，用于在读取与事务之间插入并发写
	beforeGuard func()
}

func (m *mockTeamRepo) Create(_ context.Context, team *model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if team.TeamID == "" {
		team.TeamID = nextMockID("team")
	}
	cp := *team
	cp.Members = nil
	m.items[team.TeamID] = &cp
	return nil
}

func (m *mockTeamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	m.mu.Lock()
	t, ok := m.items[id]
	var cp model.Team
	if ok {
		cp = *t
	}
	m.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp.Members, _ = m.participants.ListByTeam(ctx, id)
	return &cp, nil
}

func (m *mockTeamRepo) List(ctx context.Context, campaignID string) ([]model.TeamWithCount, error) {
	m.mu.Lock()
	var teams []model.Team
	for _, t := range m.items {
		if campaignID == "" || t.CampaignID == campaignID {
			teams = append(teams, *t)
		}
	}
	m.mu.Unlock()

	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	result := make([]model.TeamWithCount, 0, len(teams))
	for _, t := range teams {
		members, _ := m.participants.ListByTeam(ctx, t.TeamID)
		result = append(result, model.TeamWithCount{Team: t, MemberCount: len(members)})
	}
	return result, nil
}

func (m *mockTeamRepo) Update(_ context.Context, team *model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[team.TeamID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	status := cur.Status
	cp := *team
	cp.Status = status
	cp.Members = nil
	m.items[team.TeamID] = &cp
	return nil
}

func (m *mockTeamRepo) UpdateStatus(_ context.Context, id, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.Status != from {
		return pkgerrors.ErrStaleState
	}
	t.Status = to
	return nil
}

func (m *mockTeamRepo) TouchUnless(_ context.Context, id, status string) error {
	if m.beforeGuard != nil {
		m.beforeGuard()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok || t.Status == status {
		return pkgerrors.ErrStaleState
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (m *mockTeamRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *mockTeamRepo) CountMembers(ctx context.Context, id string) (int64, error) {
	members, _ := m.participants.ListByTeam(ctx, id)
	return int64(len(members)), nil
}

// ── Mock 审计日志 ──

type mockRegistrationLogRepo struct {
	mu   sync.Mutex
	logs []model.RegistrationLog
}

func (m *mockRegistrationLogRepo) Append(_ context.Context, log *model.RegistrationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.LogID == "" {
		log.LogID = nextMockID("log")
	}
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockRegistrationLogRepo) ListByRegistration(_ context.Context, registrationID string) ([]model.RegistrationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.RegistrationLog
	for _, l := range m.logs {
		if l.RegistrationID == registrationID {
			result = append(result, l)
		}
	}
	return result, nil
}

type mockTeamLogRepo struct {
	mu   sync.Mutex
	logs []model.TeamLog
}

func (m *mockTeamLogRepo) Append(_ context.Context, log *model.TeamLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if log.LogID == "" {
		log.LogID = nextMockID("tlog")
	}
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockTeamLogRepo) ListByTeam(_ context.Context, teamID string) ([]model.TeamLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.TeamLog
	for _, l := range m.logs {
		if l.TeamID == teamID {
			result = append(result, l)
		}
	}
	return result, nil
}
