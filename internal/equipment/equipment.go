package equipment

import (
	"errors"
	"fmt"

	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
)

// namedReference — эталонный прибор с его логической ролью в обвязке.
// Порядок в слайсе задает порядок открытия и опроса.
type namedReference struct {
	kind   models.ReferenceKind
	device interfaces.Device
	ref    interfaces.Reference
}

// Aggregate владеет приборами одного прогона и отдает их наружу только
// через интерфейсы-способности: оркестратору безразличны модели приборов.
type Aggregate struct {
	flow   interfaces.MassFlowController
	supply interfaces.SupplyController
	temp   interfaces.TemperatureReference
	duts   interfaces.DutBank

	refs   []namedReference
	logger *logging.Logger
}

var _ interfaces.Equipment = (*Aggregate)(nil)

// NewAggregate собирает агрегат из готовых драйверов.
func NewAggregate(
	flow interfaces.MassFlowController,
	supply interfaces.SupplyController,
	temp interfaces.TemperatureReference,
	duts interfaces.DutBank,
	logger *logging.Logger,
) *Aggregate {
	return &Aggregate{
		flow:   flow,
		supply: supply,
		temp:   temp,
		duts:   duts,
		refs: []namedReference{
			{models.RefMassFlow, flow, flow},
			{models.RefSupply, supply, supply},
			{models.RefTemperature, temp, temp},
		},
		logger: logger.WithPrefix("EQUIPMENT"),
	}
}

// Open открывает приборы по порядку и останавливается на первой ошибке.
// Уже открытые приборы не закрываются: освобождение — обязанность Close(),
// который должен быть вызван в любом случае.
func (a *Aggregate) Open() error {
	for _, r := range a.refs {
		if err := r.device.Open(); err != nil {
			return fmt.Errorf("открытие эталона '%s': %w", r.kind, err)
		}
	}
	if err := a.duts.Open(); err != nil {
		return fmt.Errorf("открытие стенда DUT: %w", err)
	}
	a.logger.Info("All instruments opened")
	return nil
}

// Close закрывает все приборы, в том числе на частично открытом агрегате,
// собирая ошибки вместо остановки на первой.
func (a *Aggregate) Close() error {
	var errs []error
	for _, r := range a.refs {
		if err := r.device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие эталона '%s': %w", r.kind, err))
		}
	}
	if err := a.duts.Close(); err != nil {
		errs = append(errs, fmt.Errorf("закрытие стенда DUT: %w", err))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.logger.Info("All instruments closed")
	return nil
}

// Read опрашивает каждый эталон по одному разу и возвращает цельный снимок.
// Ошибка любого прибора — ошибка всего опроса: частичный снимок опаснее
// отсутствующего, по нему оркестратор посчитал бы ошибку калибровки
// относительно устаревшего эталона.
func (a *Aggregate) Read() (map[models.ReferenceKind]models.Reading, error) {
	snapshot := make(map[models.ReferenceKind]models.Reading, len(a.refs))
	for _, r := range a.refs {
		reading, err := r.ref.Read()
		if err != nil {
			return nil, fmt.Errorf("опрос эталона '%s': %w", r.kind, err)
		}
		snapshot[r.kind] = reading
	}
	return snapshot, nil
}

func (a *Aggregate) FlowController() interfaces.MassFlowController { return a.flow }
func (a *Aggregate) Supply() interfaces.SupplyController           { return a.supply }
func (a *Aggregate) Duts() interfaces.DutBank                      { return a.duts }
