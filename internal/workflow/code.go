package workflow

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Clock 时间源
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// RandomSource 随机数源，Intn 返回 [0,n)
type RandomSource interface {
	Intn(n int) int
}

// lockedRand 并发安全的 math/rand 包装
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomSource 以给定种子创建并发安全的随机数源
func NewRandomSource(seed int64) RandomSource {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

// codePattern 报名编号对外格式
var codePattern = regexp.MustCompile(`^[A-Z0-9]+-\d{6}$`)

// IsWellFormedCode 是否符合 PREFIX-000000 格式
// 时间戳兜底编号不满足该格式
func IsWellFormedCode(code string) bool {
	return codePattern.MatchString(code)
}

// DefaultCodeRetries 编号冲突时的最大重试次数
const DefaultCodeRetries = 10

// CodeExistsFunc 查询编号是否已被占用
type CodeExistsFunc func(ctx context.Context, code string) (bool, error)

// CodeGenerator 报名编号生成器：{PREFIX}-{6 位随机数}
type CodeGenerator struct {
	rnd        RandomSource
	clock      Clock
	maxRetries int
}

// NewCodeGenerator 创建编号生成器；maxRetries <= 0 时使用默认值
func NewCodeGenerator(rnd RandomSource, clock Clock, maxRetries int) *CodeGenerator {
	if maxRetries <= 0 {
		maxRetries = DefaultCodeRetries
	}
	return &CodeGenerator{rnd: rnd, clock: clock, maxRetries: maxRetries}
}

// Generate 生成未被占用的编号。
// 连续 maxRetries 次冲突后退化为 {PREFIX}-{unix 时间戳}，该兜底值可能不符合对外格式。
func (g *CodeGenerator) Generate(ctx context.Context, prefix string, exists CodeExistsFunc) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))

	for i := 0; i < g.maxRetries; i++ {
		code := fmt.Sprintf("%s-%06d", prefix, g.rnd.Intn(999999)+1)
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("检查编号唯一性失败: %w", err)
		}
		if !taken {
			return code, nil
		}
	}

	return fmt.Sprintf("%s-%d", prefix, g.clock.Now().Unix()), nil
}
