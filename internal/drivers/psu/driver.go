package psu

import (
	"math"
	"sync"

	"github.com/iwtcode/calibService/internal/codec"
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// Model — метка модели источника питания в настройках обвязки.
const Model = "PSU-3303"

// Предел тока модели. Предел напряжения задается настройками прибора.
const maxCurrent = 5.0

// SCPI-заголовки модели.
const (
	headVoltage     = "SOUR:VOLT"
	headCurrent     = "SOUR:CURR"
	headMeasVoltage = "MEAS:VOLT:DC"
	headMeasCurrent = "MEAS:CURR:DC"
	headOutput      = "OUTP"
)

// Driver управляет SCPI-источником питания: эталон напряжения/тока
// и регулятор обеих величин. Модель не возвращает эхо в командах,
// поэтому подтверждение записи делается обратным чтением уставки.
type Driver struct {
	tr       interfaces.LineTransport
	scpi     codec.SCPI
	settings models.InstrumentSettings
	logger   *logging.Logger

	mu sync.Mutex
	// Кэш последних подтвержденных уставок: ReadSetpoint возвращает
	// "что мы просили", а не "что прибор сейчас делает".
	setpoints map[models.VariableType]float64
}

var _ interfaces.SupplyController = (*Driver)(nil)

// New создает драйвер источника питания поверх готового транспорта.
func New(tr interfaces.LineTransport, settings models.InstrumentSettings, logger *logging.Logger) *Driver {
	return &Driver{
		tr:        tr,
		settings:  settings,
		logger:    logger.WithPrefix("PSU"),
		setpoints: make(map[models.VariableType]float64),
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

// validateSerial — модель принимает 9600/57600/115200 бод, 8N1.
func (d *Driver) validateSerial() error {
	s := d.settings.Serial
	switch s.BaudRate {
	case 9600, 57600, 115200:
	default:
		return deverr.Newf(deverr.ErrUnsupportedSetting, "psu.Open", "модель %s не поддерживает скорость %d", Model, s.BaudRate)
	}
	if s.DataBits != 8 || (s.Parity != "" && s.Parity != "none") || s.StopBits != 1 {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "psu.Open", "модель %s поддерживает только формат кадра 8N1", Model)
	}
	return nil
}

// Read опрашивает фактические напряжение и ток на выходе.
func (d *Driver) Read() (models.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	volt, err := d.queryFloat(headMeasVoltage)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "psu.Read", err)
	}
	curr, err := d.queryFloat(headMeasCurrent)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "psu.Read", err)
	}

	return models.Reading{
		models.Voltage: volt,
		models.Current: curr,
	}, nil
}

// WriteSetpoint задает уставку напряжения или тока. Подтверждение —
// обратное чтение уставки и сверка с запрошенной в пределах допуска модели.
func (d *Driver) WriteSetpoint(t models.VariableType, value float64) error {
	header, limit, err := d.controlHeader(t)
	if err != nil {
		return err
	}
	if value < 0 {
		return deverr.Newf(deverr.ErrOutOfRange, "psu.WriteSetpoint", "отрицательная уставка %v для %v", value, t)
	}
	if value > limit {
		return deverr.Newf(deverr.ErrOutOfRange, "psu.WriteSetpoint", "уставка %v выше предела прибора %v", value, limit)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.tr.WriteLine(d.scpi.Command(header, value)); err != nil {
		return deverr.New(deverr.ErrCommunicationError, "psu.WriteSetpoint", err)
	}
	echo, err := d.queryFloat(header)
	if err != nil {
		return deverr.New(deverr.ErrCommunicationError, "psu.WriteSetpoint", err)
	}
	if math.Abs(echo-value) > d.settings.EchoTolerance {
		return deverr.Newf(deverr.ErrCommunicationError, "psu.WriteSetpoint",
			"обратное чтение уставки %v расходится с запрошенной %v сверх допуска %v", echo, value, d.settings.EchoTolerance)
	}

	d.setpoints[t] = value
	d.logger.Debug("Setpoint confirmed", "type", t, "value", value, "readback", echo)
	return nil
}

// ReadSetpoint возвращает последнюю подтвержденную уставку из кэша,
// без обращения к прибору.
func (d *Driver) ReadSetpoint(t models.VariableType) (float64, error) {
	if _, _, err := d.controlHeader(t); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	v, ok := d.setpoints[t]
	if !ok {
		return 0, deverr.Newf(deverr.ErrUnsupportedSetting, "psu.ReadSetpoint", "уставка %v еще не задавалась", t)
	}
	return v, nil
}

// SetControlMode включает или выключает выход источника.
func (d *Driver) SetControlMode(mode models.ControlMode) error {
	var arg, want string
	switch mode {
	case models.ModeActive:
		arg, want = "ON", "1"
	case models.ModePassive:
		arg, want = "OFF", "0"
	default:
		return deverr.Newf(deverr.ErrUnsupportedSetting, "psu.SetControlMode", "модель %s не поддерживает режим %v", Model, mode)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.tr.WriteLine(d.scpi.CommandRaw(headOutput, arg)); err != nil {
		return deverr.New(deverr.ErrCommunicationError, "psu.SetControlMode", err)
	}
	if err := d.tr.WriteLine(d.scpi.Query(headOutput)); err != nil {
		return deverr.New(deverr.ErrCommunicationError, "psu.SetControlMode", err)
	}
	resp, err := d.tr.ReadLine()
	if err != nil {
		return deverr.New(deverr.ErrCommunicationError, "psu.SetControlMode", err)
	}
	tokens := codec.Tokenize(resp)
	if len(tokens) != 1 || tokens[0] != want {
		return deverr.Newf(deverr.ErrUnexpectedResponse, "psu.SetControlMode", "состояние выхода '%s' вместо '%s'", resp, want)
	}

	d.logger.Info("Output state set", "mode", mode)
	return nil
}

// controlHeader возвращает SCPI-заголовок и предел для управляемой величины.
func (d *Driver) controlHeader(t models.VariableType) (string, float64, error) {
	switch t {
	case models.Voltage:
		return headVoltage, d.settings.MaxSetpoint, nil
	case models.Current:
		return headCurrent, maxCurrent, nil
	default:
		return "", 0, deverr.Newf(deverr.ErrUnsupportedSetting, "psu.WriteSetpoint", "модель %s не управляет величиной %v", Model, t)
	}
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
