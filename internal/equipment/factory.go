package equipment

import (
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/drivers/dlog"
	"github.com/iwtcode/calibService/internal/drivers/dutbank"
	"github.com/iwtcode/calibService/internal/drivers/mfc"
	"github.com/iwtcode/calibService/internal/drivers/psu"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	"github.com/iwtcode/calibService/internal/transport"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// Factory собирает агрегат обвязки из настроек: метка модели выбирает
// драйвер, каждый драйвер получает собственный транспорт.
type Factory struct {
	logger *logging.Logger
}

var _ interfaces.EquipmentFactory = (*Factory)(nil)

func NewFactory(logger *logging.Logger) *Factory {
	return &Factory{logger: logger}
}

// Build создает агрегат по настройкам обвязки. Неизвестная метка модели —
// ConfigurationNotFound до какого-либо обращения к портам.
func (f *Factory) Build(cfg models.EquipmentSettings) (interfaces.Equipment, error) {
	flow, err := f.buildFlowController(cfg.FlowController)
	if err != nil {
		return nil, err
	}
	supply, err := f.buildSupply(cfg.PowerSupply)
	if err != nil {
		return nil, err
	}
	temp, err := f.buildDatalogger(cfg.Datalogger)
	if err != nil {
		return nil, err
	}
	duts, err := f.buildDutBank(cfg.DutBank)
	if err != nil {
		return nil, err
	}

	return NewAggregate(flow, supply, temp, duts, f.logger), nil
}

func (f *Factory) buildFlowController(s models.InstrumentSettings) (interfaces.MassFlowController, error) {
	switch s.ModelLabel {
	case mfc.Model:
		return mfc.New(transport.NewLineTransport(s.Serial, f.logger), s, f.logger), nil
	default:
		return nil, deverr.Newf(deverr.ErrConfigurationNotFound, "equipment.Build",
			"неизвестная модель управляющего расходомера '%s'", s.ModelLabel)
	}
}

func (f *Factory) buildSupply(s models.InstrumentSettings) (interfaces.SupplyController, error) {
	switch s.ModelLabel {
	case psu.Model:
		return psu.New(transport.NewLineTransport(s.Serial, f.logger), s, f.logger), nil
	default:
		return nil, deverr.Newf(deverr.ErrConfigurationNotFound, "equipment.Build",
			"неизвестная модель источника питания '%s'", s.ModelLabel)
	}
}

func (f *Factory) buildDatalogger(s models.InstrumentSettings) (interfaces.TemperatureReference, error) {
	switch s.ModelLabel {
	case dlog.Model:
		return dlog.New(transport.NewLineTransport(s.Serial, f.logger), s, f.logger), nil
	default:
		return nil, deverr.Newf(deverr.ErrConfigurationNotFound, "equipment.Build",
			"неизвестная модель даталоггера '%s'", s.ModelLabel)
	}
}

func (f *Factory) buildDutBank(s models.InstrumentSettings) (interfaces.DutBank, error) {
	switch s.ModelLabel {
	case dutbank.Model:
		return dutbank.New(transport.NewLineTransport(s.Serial, f.logger), s, f.logger), nil
	default:
		return nil, deverr.Newf(deverr.ErrConfigurationNotFound, "equipment.Build",
			"неизвестная модель стенда DUT '%s'", s.ModelLabel)
	}
}
