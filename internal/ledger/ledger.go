package ledger

import (
	"sort"
	"sync"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/pkg/monitoring"
)

// Ledger 保存已开始但未完成的尝试。
// 在 Take 交出之前，它是未完成尝试的唯一持有者
type Ledger struct {
	mu   sync.Mutex
	open map[string]*model.Attempt
}

func New() *Ledger {
	return &Ledger{open: make(map[string]*model.Attempt)}
}

func (l *Ledger) Open(a *model.Attempt) {
	l.mu.Lock()
	l.open[a.AttemptID] = a
	n := len(l.open)
	l.mu.Unlock()
	monitoring.OpenAttempts.Set(float64(n))
}

// mutate 在 ledger 锁内对未完成的尝试执行 fn，id 不存在时返回 false
func (l *Ledger) mutate(attemptID string, fn func(a *model.Attempt)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.open[attemptID]
	if !ok {
		return false
	}
	fn(a)
	return true
}

func (l *Ledger) RecordInput(attemptID string, rec model.InputRecord) bool {
	return l.mutate(attemptID, func(a *model.Attempt) {
		a.StepInputs = append(a.StepInputs, rec)
	})
}

func (l *Ledger) RecordError(attemptID string, rec model.ErrorRecord) bool {
	return l.mutate(attemptID, func(a *model.Attempt) {
		a.StepErrors = append(a.StepErrors, rec)
	})
}

func (l *Ledger) RecordTelemetry(attemptID string, rec model.TelemetryRecord) bool {
	return l.mutate(attemptID, func(a *model.Attempt) {
		a.StepTelemetry = append(a.StepTelemetry, rec)
	})
}

// Take 移除并返回尝试。同一 id 的多个并发调用只有一个拿到 ok == true
func (l *Ledger) Take(attemptID string) (*model.Attempt, bool) {
	l.mu.Lock()
	a, ok := l.open[attemptID]
	if ok {
		delete(l.open, attemptID)
	}
	n := len(l.open)
	l.mu.Unlock()
	monitoring.OpenAttempts.Set(float64(n))
	return a, ok
}

// Restore 重新打开持久化失败的尝试
func (l *Ledger) Restore(a *model.Attempt) {
	l.mu.Lock()
	if _, exists := l.open[a.AttemptID]; !exists {
		l.open[a.AttemptID] = a
	}
	n := len(l.open)
	l.mu.Unlock()
	monitoring.OpenAttempts.Set(float64(n))
}

// Get 返回未完成尝试的副本
func (l *Ledger) Get(attemptID string) (*model.Attempt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.open[attemptID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.open)
}

// Sweep 清理 cutoff 之前开始的尝试，按开始时间从早到晚返回
func (l *Ledger) Sweep(cutoff time.Time) []*model.Attempt {
	l.mu.Lock()
	var expired []*model.Attempt
	for id, a := range l.open {
		if a.StartTime.Before(cutoff) {
			expired = append(expired, a)
			delete(l.open, id)
		}
	}
	n := len(l.open)
	l.mu.Unlock()

	monitoring.OpenAttempts.Set(float64(n))
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].StartTime.Before(expired[j].StartTime)
	})
	return expired
}
