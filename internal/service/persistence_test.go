package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kimeia/alientu-engine/internal/dto"
	"github.com/kimeia/alientu-engine/internal/model"
	"github.com/kimeia/alientu-engine/internal/repository"
	"github.com/kimeia/alientu-engine/internal/testutil"
	"github.com/kimeia/alientu-engine/internal/workflow"
)

// 基于 SQLite 的端到端测试：真实事务、唯一索引与外键

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func individualPayload(i int) []byte {
	return []byte(fmt.Sprintf(`{
		"_meta": {"form": "individual"},
		"referente": {"first_name": "Utente", "last_name": "Numero%d", "email": "utente%d@example.it",
			"phone": "333%07d", "fascia": "B", "accepted_rules": true, "accepted_privacy": true},
		"social": {"mode": "no"},
		"transport": {"mode": "none"}
	}`, i, i, i))
}

func TestPersistence_SubmitLupiBlu(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewRepository(db)
	svc := newTestRegistrationService(repo, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, testCampaign, lupiBlu(t))
	require.NoError(t, err)

	assert.EqualValues(t, 1, countRows(t, db, &model.Registration{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.Team{}))
	assert.EqualValues(t, 8, countRows(t, db, &model.Participant{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.RegistrationLog{}))
	assert.EqualValues(t, 1, countRows(t, db, &model.TeamLog{}))

	reg, err := repo.Registration.GetByID(ctx, res.RegistrationID)
	require.NoError(t, err)
	assert.Equal(t, "69.00", reg.TotalFinal.StringFixed(2))
	assert.Equal(t, "5.00", reg.Donation.StringFixed(2))
	assert.JSONEq(t, string(lupiBlu(t)), string(reg.PayloadSnapshot))
	for _, p := range reg.Participants {
		assert.NotNil(t, p.TeamID, "队员应归入自动创建的队伍")
	}
}

// 参与者写入失败时，报名、队伍与日志全部回滚
func TestPersistence_CreateIsAtomic(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_participants", func(tx *gorm.DB) {
		if tx.Statement.Table == "participants" {
			_ = tx.AddError(errors.New("simulated failure"))
		}
	}))
	svc := newTestRegistrationService(repository.NewRepository(db), nil)

	_, err := svc.Submit(context.Background(), testCampaign, lupiBlu(t))
	require.ErrorIs(t, err, ErrInternal)

	for _, m := range []interface{}{&model.Registration{}, &model.Team{}, &model.Participant{}, &model.RegistrationLog{}, &model.TeamLog{}} {
		assert.Zero(t, countRows(t, db, m), "%T 应已回滚", m)
	}
}

func TestPersistence_CodesAreUnique(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewRepository(db)
	svc := newTestRegistrationService(repo, nil)
	ctx := context.Background()

	const n = 1000
	seen := make(map[string]bool, n)
	var last *CreateResult
	for i := 0; i < n; i++ {
		res, err := svc.Submit(ctx, testCampaign, individualPayload(i))
		require.NoError(t, err)
		require.False(t, seen[res.Code], "编号重复: %s", res.Code)
		require.NotEqual(t, "ALIENTU26-000000", res.Code)
		seen[res.Code] = true
		last = res
	}
	assert.EqualValues(t, n, countRows(t, db, &model.Registration{}))

	pub, err := svc.GetByCode(ctx, " "+last.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, last.Code, pub.Code)
	assert.Equal(t, "individual", pub.Type)
	assert.Equal(t, "3.00", pub.TotalFinal)
}

func TestPersistence_TransitionAndHistory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewRepository(db)
	svc := newTestRegistrationService(repo, nil)
	ctx := context.Background()

	res, err := svc.Submit(ctx, testCampaign, lupiBlu(t))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, res.RegistrationID, workflow.StatusWaitingPayment, "", "anna")
	require.NoError(t, err)
	require.NoError(t, svc.AddNote(ctx, res.RegistrationID, NotePayment, "bonifico ricevuto", "anna"))
	_, err = svc.Transition(ctx, res.RegistrationID, workflow.StatusConfirmed, "pagato", "anna")
	require.NoError(t, err)

	history, err := svc.History(ctx, res.RegistrationID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	var notes []string
	for _, h := range history {
		notes = append(notes, h.Note)
	}
	assert.Equal(t, []string{"Iscrizione ricevuta.", "", "[PAYMENT] bonifico ricevuto", "pagato"}, notes)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, "confirmed", history[3].ToStatus)
}

func TestPersistence_TeamLifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := repository.NewRepository(db)
	regs := newTestRegistrationService(repo, nil)
	teams := NewTeamService(repo, zap.NewNop())
	ctx := context.Background()

	res, err := regs.Submit(ctx, testCampaign, lupiBlu(t))
	require.NoError(t, err)
	reg, err := repo.Registration.GetByID(ctx, res.RegistrationID)
	require.NoError(t, err)
	teamID := *reg.Participants[0].TeamID

	// 拆出 2 名队员组成新队伍
	require.NoError(t, teams.RemoveMembers(ctx, teamID, []string{reg.Participants[6].ParticipantID, reg.Participants[7].ParticipantID}, "op"))
	split, err := teams.CreateFromRegistration(ctx, &dto.CreateTeamRequest{
		RegistrationID: res.RegistrationID, Name: "Lupi Verdi", Mode: "all",
	}, "op")
	require.NoError(t, err)
	assert.Equal(t, 2, split.MemberCount)

	list, err := teams.List(ctx, testCampaign)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, tm := range list {
		counts[tm.Name] = tm.MemberCount
	}
	assert.Equal(t, map[string]int{"Lupi Blu": 6, "Lupi Verdi": 2}, counts)

	require.NoError(t, teams.Delete(ctx, split.ID, "op"))
	n, err := repo.Team.CountMembers(ctx, split.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 8, countRows(t, db, &model.Participant{}), "删除队伍不删除参与者")
}
