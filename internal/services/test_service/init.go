package test_service

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iwtcode/calibService/internal/domain/entities"
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
)

// Phase — состояние конечного автомата прогона.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseRunning
	PhaseAborting
	PhaseCompleting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseRunning:
		return "running"
	case PhaseAborting:
		return "aborting"
	case PhaseCompleting:
		return "completing"
	}
	return "unknown"
}

// TestManager — оркестратор калибровочных прогонов. Вся последовательность
// выполняется на одной фоновой горутине: опрос приборов по своей природе
// сериализован линией, а вызывающая сторона не должна ждать сериальный
// ввод-вывод. Уведомления наблюдателю уходят из фонового контекста.
type TestManager struct {
	factory  interfaces.EquipmentFactory
	observer interfaces.TestObserver
	producer interfaces.ReportProducer // может быть nil: отчет тогда не публикуется
	logger   *logging.Logger

	mu        sync.Mutex
	phase     Phase
	runID     string
	progress  int
	message   string
	duts      []*entities.Dut
	abort     chan struct{}
	aborted   bool
	startedAt time.Time
}

var _ interfaces.TestService = (*TestManager)(nil)

// NewTestManager создает оркестратор. Наблюдатель обязателен: передайте
// NopObserver, если события не нужны.
func NewTestManager(
	factory interfaces.EquipmentFactory,
	observer interfaces.TestObserver,
	producer interfaces.ReportProducer,
	logger *logging.Logger,
) *TestManager {
	return &TestManager{
		factory:  factory,
		observer: observer,
		producer: producer,
		logger:   logger.WithPrefix("TESTRUN"),
		phase:    PhaseIdle,
	}
}

// Start запускает прогон по снимку конфигурации. Единственный допустимый
// вход — из состояния Idle; повторный Start при активном прогоне — ошибка
// без изменения состояния. Ошибки конфигурации фатальны до старта: прогон
// не начинается вовсе.
func (m *TestManager) Start(cfg models.RunConfig) error {
	m.mu.Lock()
	if m.phase != PhaseIdle {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("прогон уже активен (состояние '%s')", phase)
	}

	selected := 0
	for _, d := range cfg.Duts {
		if d.Selected {
			selected++
		}
	}
	if selected == 0 {
		m.mu.Unlock()
		return fmt.Errorf("не выбран ни один DUT")
	}
	if len(cfg.Profile.Setpoints) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("профиль '%s' не содержит уставок", cfg.Profile.Label)
	}
	m.mu.Unlock()

	// Сборка обвязки до перехода из Idle: неизвестная метка модели —
	// ошибка конфигурации, а не сорванный прогон.
	eq, err := m.factory.Build(cfg.Equipment)
	if err != nil {
		return fmt.Errorf("сборка обвязки: %w", err)
	}

	m.mu.Lock()
	if m.phase != PhaseIdle {
		phase := m.phase
		m.mu.Unlock()
		return fmt.Errorf("прогон уже активен (состояние '%s')", phase)
	}

	duts := make([]*entities.Dut, 0, len(cfg.Duts))
	for _, sel := range cfg.Duts {
		duts = append(duts, &entities.Dut{
			Index:        sel.Index,
			SerialNumber: sel.SerialNumber,
			Selected:     sel.Selected,
			Status:       entities.DutStatusIdle,
		})
	}

	m.phase = PhaseInitializing
	m.runID = uuid.New().String()
	m.progress = 0
	m.message = ""
	m.duts = duts
	m.abort = make(chan struct{})
	m.aborted = false
	m.startedAt = time.Now()
	runID := m.runID
	m.mu.Unlock()

	m.logger.Info("Run starting", "runID", runID, "duts", selected, "profile", cfg.Profile.Label)
	go m.run(cfg, eq)
	return nil
}

// Stop запрашивает кооперативную остановку. Текущий атомарный обмен с
// прибором всегда доводится до конца: флаг наблюдается на ближайшей
// контрольной точке между шагами.
func (m *TestManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseIdle || m.aborted {
		return
	}
	m.aborted = true
	close(m.abort)
	if m.phase == PhaseRunning {
		m.phase = PhaseAborting
	}
	m.logger.Info("Abort requested", "runID", m.runID)
}

// IsBusy истинен во всех состояниях, кроме Idle.
func (m *TestManager) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase != PhaseIdle
}

// Phase возвращает текущее состояние автомата.
func (m *TestManager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Snapshot возвращает read-only снимок состояния прогона.
func (m *TestManager) Snapshot() models.RunSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.RunSnapshot{
		RunID:    m.runID,
		Phase:    m.phase.String(),
		Progress: m.progress,
		Message:  m.message,
	}
}

// Duts возвращает копию текущего набора DUT.
func (m *TestManager) Duts() []entities.Dut {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entities.Dut, 0, len(m.duts))
	for _, d := range m.duts {
		out = append(out, *d)
	}
	return out
}
