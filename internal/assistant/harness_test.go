package assistant

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
	"github.com/AaronL1011/mechmate-sub000/internal/testsupport"
)

// scriptedModel replays replies in order and records what it was sent.
type scriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	err     error
	seen    [][]Message
}

func (m *scriptedModel) Complete(_ context.Context, messages []Message, _ []FunctionSpec) (Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, append([]Message(nil), messages...))
	if m.err != nil {
		return Reply{}, m.err
	}
	i := len(m.seen) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i], nil
}

func (m *scriptedModel) turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func call(name string, arguments map[string]any) Reply {
	return Reply{ToolCalls: []RawToolCall{{Name: name, Arguments: arguments}}}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store     *repository.Store
	svc       Services
	executor  *Executor
	pending   *MemoryPendingStore
	clock     *clock
	model     *scriptedModel
	orch      *Orchestrator
	confirmer *Confirmer
}

func newHarness(t *testing.T, replies ...Reply) *harness {
	t.Helper()
	store := testsupport.NewStore(t)
	logger := zap.NewNop()
	locks := service.NewTaskLocks()
	svc := Services{
		Equipment:   service.NewEquipmentService(store, logger),
		Tasks:       service.NewTaskService(store, locks, 14, logger),
		Maintenance: service.NewMaintenanceService(store, locks, logger),
	}
	clk := &clock{now: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
	pending := NewMemoryPendingStore(10*time.Minute, 500, WithClock(clk.Now))
	executor := NewExecutor(svc, logger)
	m := &scriptedModel{replies: replies}

	orch := NewOrchestrator(m, executor, pending, 3, logger)
	orch.now = clk.Now
	confirmer := NewConfirmer(pending, svc, logger)
	confirmer.now = clk.Now

	return &harness{store: store, svc: svc, executor: executor, pending: pending, clock: clk, model: m, orch: orch, confirmer: confirmer}
}

func (h *harness) equipment(t *testing.T, name string, usage float64) *model.Equipment {
	t.Helper()
	e, err := h.svc.Equipment.Create(context.Background(), model.CreateEquipment{Name: name, EquipmentType: "car", CurrentUsageValue: &usage, UsageUnit: "km"})
	require.NoError(t, err)
	return e
}

func (h *harness) task(t *testing.T, in model.CreateTask) *model.Task {
	t.Helper()
	task, err := h.svc.Tasks.CreateTask(context.Background(), in)
	require.NoError(t, err)
	return task
}

func (h *harness) countTasks(t *testing.T) int {
	t.Helper()
	tasks, err := h.store.Tasks.List(context.Background(), repository.TaskFilter{})
	require.NoError(t, err)
	return len(tasks)
}
