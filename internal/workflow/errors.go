package workflow

import (
	"fmt"
	"strings"
)

// ValidationError 用户可修正的校验错误，逐条给出意大利语提示
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

// NewValidationError 以若干条提示构造 ValidationError
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Messages: msgs}
}

// TransitionError 转换表不允许的状态变更（属于校验错误，不是冲突）
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Transizione non consentita: %s → %s.", e.From, e.To)
}

// Messages 与 ValidationError 保持一致，便于 handler 统一输出
func (e *TransitionError) Messages() []string {
	return []string{e.Error()}
}
