package workflow

// ── 状态机 ──

// Machine 有限状态机转换表
type Machine[S ~string] struct {
	transitions map[S][]S
}

// NewMachine 以 from → 允许的 to 列表构造状态机
func NewMachine[S ~string](transitions map[S][]S) *Machine[S] {
	return &Machine[S]{transitions: transitions}
}

// Known 状态是否在转换表中
func (m *Machine[S]) Known(s S) bool {
	_, ok := m.transitions[s]
	return ok
}

// Allows from → to 是否允许
func (m *Machine[S]) Allows(from, to S) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next 从 from 可到达的状态（副本）
func (m *Machine[S]) Next(from S) []S {
	return append([]S(nil), m.transitions[from]...)
}

// Check 不允许时返回 *TransitionError
func (m *Machine[S]) Check(from, to S) error {
	if !m.Allows(from, to) {
		return &TransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// ── 报名状态 ──

// Status 报名状态（对外字符串取值）
type Status string

const (
	StatusReceived       Status = "received"
	StatusNeedsReview    Status = "needs_review"
	StatusWaitingPayment Status = "waiting_payment"
	StatusConfirmed      Status = "confirmed"
	StatusCancelled      Status = "cancelled"
	StatusArchived       Status = "archived"
)

// Statuses 全部报名状态，按流程顺序
var Statuses = []Status{
	StatusReceived, StatusNeedsReview, StatusWaitingPayment,
	StatusConfirmed, StatusCancelled, StatusArchived,
}

// RegistrationMachine 报名状态转换表；archived 为终态
var RegistrationMachine = NewMachine(map[Status][]Status{
	StatusReceived:       {StatusNeedsReview, StatusWaitingPayment, StatusCancelled},
	StatusNeedsReview:    {StatusWaitingPayment, StatusCancelled},
	StatusWaitingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusArchived, StatusCancelled},
	StatusCancelled:      {StatusArchived},
	StatusArchived:       {},
})

// Label 状态的意大利语名称
func (s Status) Label() string {
	switch s {
	case StatusReceived:
		return "Ricevuta"
	case StatusNeedsReview:
		return "Da revisionare"
	case StatusWaitingPayment:
		return "In attesa di pagamento"
	case StatusConfirmed:
		return "Confermata"
	case StatusCancelled:
		return "Annullata"
	case StatusArchived:
		return "Archiviata"
	}
	return string(s)
}

// ── 队伍状态 ──

// TeamStatus 队伍状态
type TeamStatus string

const (
	TeamDraft         TeamStatus = "draft"
	TeamPendingReview TeamStatus = "pending_review"
	TeamNeedsChanges  TeamStatus = "needs_changes"
	TeamApproved      TeamStatus = "approved"
	TeamLocked        TeamStatus = "locked"
)

// TeamMachine 队伍状态转换表
var TeamMachine = NewMachine(map[TeamStatus][]TeamStatus{
	TeamDraft:         {TeamPendingReview},
	TeamPendingReview: {TeamApproved, TeamNeedsChanges},
	TeamNeedsChanges:  {TeamPendingReview},
	TeamApproved:      {TeamLocked, TeamNeedsChanges},
	TeamLocked:        {TeamApproved},
})

// Label 队伍状态的意大利语名称
func (s TeamStatus) Label() string {
	switch s {
	case TeamDraft:
		return "Bozza"
	case TeamPendingReview:
		return "In revisione"
	case TeamNeedsChanges:
		return "Da correggere"
	case TeamApproved:
		return "Approvata"
	case TeamLocked:
		return "Bloccata"
	}
	return string(s)
}

// 队伍容量范围
const (
	TeamCapacityMin     = 2
	TeamCapacityMax     = 20
	TeamCapacityDefault = 12
)

// ClampCapacity 将容量限制在 [2,20]，0 表示使用默认值
func ClampCapacity(c int) int {
	switch {
	case c == 0:
		return TeamCapacityDefault
	case c < TeamCapacityMin:
		return TeamCapacityMin
	case c > TeamCapacityMax:
		return TeamCapacityMax
	}
	return c
}
