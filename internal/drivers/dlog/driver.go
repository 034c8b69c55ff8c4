package dlog

import (
	"sync"

	"github.com/iwtcode/calibService/internal/codec"
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// Model — метка модели даталоггера в настройках обвязки.
const Model = "DL-970"

// SCPI-заголовки модели.
const (
	headTemperature = "MEAS:TEMP"
	headPressure    = "MEAS:PRES"
)

// Driver опрашивает SCPI-даталоггер: эталон температуры и давления среды.
// Прибор только измеряет, управляющих способностей у модели нет.
type Driver struct {
	tr       interfaces.LineTransport
	scpi     codec.SCPI
	settings models.InstrumentSettings
	logger   *logging.Logger
	mu       sync.Mutex
}

var _ interfaces.TemperatureReference = (*Driver)(nil)

// New создает драйвер даталоггера поверх готового транспорта.
func New(tr interfaces.LineTransport, settings models.InstrumentSettings, logger *logging.Logger) *Driver {
	return &Driver{
		tr:       tr,
		settings: settings,
		logger:   logger.WithPrefix("DLOG"),
	}
}

func (d *Driver) Model() string { return Model }

// Open проверяет настройки канала против возможностей модели и открывает порт.
func (d *Driver) Open() error {
	if err := d.validateSerial(); err != nil {
		return err
	}
	return d.tr.Open()
}

func (d *Driver) Close() error { return d.tr.Close() }

// validateSerial — модель принимает 9600/19200/38400 бод, 8 бит данных,
// четность none или even, 1 стоп-бит.
func (d *Driver) validateSerial() error {
	s := d.settings.Serial
	switch s.BaudRate {
	case 9600, 19200, 38400:
	default:
		return deverr.Newf(deverr.ErrUnsupportedSetting, "dlog.Open", "модель %s не поддерживает скорость %d", Model, s.BaudRate)
	}
	if s.DataBits != 8 || s.StopBits != 1 {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "dlog.Open", "модель %s поддерживает только 8 бит данных и 1 стоп-бит", Model)
	}
	switch s.Parity {
	case "", "none", "even":
	default:
		return deverr.Newf(deverr.ErrUnsupportedSetting, "dlog.Open", "модель %s не поддерживает четность '%s'", Model, s.Parity)
	}
	return nil
}

// Read опрашивает температуру и давление и возвращает один снимок.
func (d *Driver) Read() (models.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	temp, err := d.queryFloat(headTemperature)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "dlog.Read", err)
	}
	pres, err := d.queryFloat(headPressure)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "dlog.Read", err)
	}

	return models.Reading{
		models.Temperature: temp,
		models.Pressure:    pres,
	}, nil
}

func (d *Driver) queryFloat(header string) (float64, error) {
	if err := d.tr.WriteLine(d.scpi.Query(header)); err != nil {
		return 0, err
	}
	resp, err := d.tr.ReadLine()
	if err != nil {
		return 0, err
	}
	return d.scpi.ParseFloat(resp)
}
