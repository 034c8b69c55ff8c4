package interfaces

import (
	"context"

	"github.com/iwtcode/calibService/internal/domain/entities"
	"github.com/iwtcode/calibService/internal/domain/models"
)

// TestService определяет контракт оркестратора калибровочных прогонов.
type TestService interface {
	// Start запускает прогон по снимку конфигурации. Допустим только из
	// состояния Idle: одновременно активен не более чем один прогон.
	Start(cfg models.RunConfig) error
	// Stop запрашивает кооперативную остановку активного прогона.
	// Из состояния Idle — no-op.
	Stop()
	// IsBusy истинен во всех состояниях, кроме Idle.
	IsBusy() bool
	// Snapshot возвращает read-only снимок состояния прогона.
	Snapshot() models.RunSnapshot
	// Duts возвращает снимок текущего набора DUT.
	Duts() []entities.Dut
}

// ReportProducer определяет контракт экспорта итогового отчета о прогоне.
type ReportProducer interface {
	Produce(ctx context.Context, key, value []byte) error
	Close() error
}

// Usecases - это агрегирующий интерфейс для всей бизнес-логики.
type Usecases interface {
	StartRun() error
	StopRun()
	IsRunActive() bool
	RunStatus() models.RunSnapshot
}
