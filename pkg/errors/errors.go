package errors

import "errors"

// ErrStaleState 比较并交换失败：状态已被其他操作修改
var ErrStaleState = errors.New("Stato già modificato da un'altra operazione. Ricarica e riprova.")

// ErrLockNotAcquired 分布式锁已被其他实例持有
var ErrLockNotAcquired = errors.New("锁已被其他实例持有")
