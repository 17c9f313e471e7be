package workflow

// ActionSendEmail 目前唯一的提交后动作类型
const ActionSendEmail = "send_email"

// Action 提交后动作：在事务提交之后由调用方执行，失败不回滚
type Action struct {
	Type     string `json:"type"`
	Template string `json:"template"`
}

// ActionMap 目标状态 → 提交后动作列表
// 作为配置注入状态机，新增动作类型无需修改转换逻辑
type ActionMap map[Status][]Action

// DefaultActions 默认映射：每个状态发送同名邮件模板，archived 不发送
func DefaultActions() ActionMap {
	m := make(ActionMap, len(Statuses))
	for _, s := range Statuses {
		if s == StatusArchived {
			m[s] = nil
			continue
		}
		m[s] = []Action{{Type: ActionSendEmail, Template: string(s)}}
	}
	return m
}

// For 目标状态对应的动作（副本，调用方可随意修改）
func (m ActionMap) For(s Status) []Action {
	return append([]Action(nil), m[s]...)
}

// Merge 用 override 中出现的状态覆盖当前映射，返回新映射
func (m ActionMap) Merge(override ActionMap) ActionMap {
	out := make(ActionMap, len(m)+len(override))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
