package workflow

import (
	"errors"
	"testing"
)

func TestRegistrationMachine_Table(t *testing.T) {
	allowed := map[Status][]Status{
		StatusReceived:       {StatusNeedsReview, StatusWaitingPayment, StatusCancelled},
		StatusNeedsReview:    {StatusWaitingPayment, StatusCancelled},
		StatusWaitingPayment: {StatusConfirmed, StatusCancelled},
		StatusConfirmed:      {StatusArchived, StatusCancelled},
		StatusCancelled:      {StatusArchived},
		StatusArchived:       {},
	}

	for _, from := range Statuses {
		ok := make(map[Status]bool)
		for _, to := range allowed[from] {
			ok[to] = true
		}
		for _, to := range Statuses {
			if got := RegistrationMachine.Allows(from, to); got != ok[to] {
				t.Errorf("%s → %s: 期望 %v，实际 %v", from, to, ok[to], got)
			}
		}
	}
}

func TestRegistrationMachine_ReceivedToConfirmedRejected(t *testing.T) {
	err := RegistrationMachine.Check(StatusReceived, StatusConfirmed)

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("期望 *TransitionError，实际: %v", err)
	}
	if err.Error() != "Transizione non consentita: received → confirmed." {
		t.Errorf("提示不符: %q", err.Error())
	}

	next := RegistrationMachine.Next(StatusReceived)
	if len(next) != 3 {
		t.Errorf("received 只能转到 3 个状态，实际: %v", next)
	}
}

func TestRegistrationMachine_ArchivedIsTerminal(t *testing.T) {
	if next := RegistrationMachine.Next(StatusArchived); len(next) != 0 {
		t.Errorf("archived 应为终态，实际可转到: %v", next)
	}
	if !RegistrationMachine.Known(StatusArchived) {
		t.Error("archived 应为已知状态")
	}
	if RegistrationMachine.Known(Status("paid")) {
		t.Error("paid 不应为已知状态")
	}
}

func TestRegistrationMachine_NextReturnsCopy(t *testing.T) {
	next := RegistrationMachine.Next(StatusReceived)
	next[0] = StatusArchived
	if RegistrationMachine.Allows(StatusReceived, StatusArchived) {
		t.Error("修改 Next 返回值不应影响转换表")
	}
}

func TestTeamMachine_Table(t *testing.T) {
	cases := []struct {
		from, to TeamStatus
		ok       bool
	}{
		{TeamDraft, TeamPendingReview, true},
		{TeamDraft, TeamApproved, false},
		{TeamPendingReview, TeamApproved, true},
		{TeamPendingReview, TeamNeedsChanges, true},
		{TeamNeedsChanges, TeamPendingReview, true},
		{TeamNeedsChanges, TeamApproved, false},
		{TeamApproved, TeamLocked, true},
		{TeamApproved, TeamNeedsChanges, true},
		{TeamLocked, TeamApproved, true},
		{TeamLocked, TeamDraft, false},
	}
	for _, tc := range cases {
		if got := TeamMachine.Allows(tc.from, tc.to); got != tc.ok {
			t.Errorf("%s → %s: 期望 %v，实际 %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestClampCapacity(t *testing.T) {
	cases := map[int]int{0: 12, 1: 2, 2: 2, 8: 8, 20: 20, 35: 20, -4: 2}
	for in, want := range cases {
		if got := ClampCapacity(in); got != want {
			t.Errorf("ClampCapacity(%d) 期望 %d，实际 %d", in, want, got)
		}
	}
}

func TestDefaultActions(t *testing.T) {
	actions := DefaultActions()

	for _, s := range Statuses {
		got := actions.For(s)
		if s == StatusArchived {
			if len(got) != 0 {
				t.Errorf("archived 不应有动作，实际: %v", got)
			}
			continue
		}
		if len(got) != 1 || got[0].Type != ActionSendEmail || got[0].Template != string(s) {
			t.Errorf("%s: 期望发送同名模板邮件，实际: %v", s, got)
		}
	}
}

func TestActionMap_Merge(t *testing.T) {
	base := DefaultActions()
	merged := base.Merge(ActionMap{
		StatusConfirmed: {{Type: ActionSendEmail, Template: "confirmed_vip"}, {Type: "webhook", Template: "crm"}},
	})

	if got := merged.For(StatusConfirmed); len(got) != 2 || got[0].Template != "confirmed_vip" {
		t.Errorf("覆盖后的 confirmed 动作不符: %v", got)
	}
	if got := merged.For(StatusReceived); len(got) != 1 || got[0].Template != "received" {
		t.Errorf("未覆盖的状态应保持默认: %v", got)
	}
	if got := base.For(StatusConfirmed); got[0].Template != "confirmed" {
		t.Error("Merge 不应修改原映射")
	}
}
