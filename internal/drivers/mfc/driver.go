package mfc

import (
	"math"
	"strconv"
	"sync"

	"github.com/iwtcode/calibService/internal/codec"
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// Model — метка модели управляющего расходомера в настройках обвязки.
const Model = "MFC-500"

// Адрес устройства на линии. Семейство поддерживает одно логическое
// устройство на физическом канале, адрес фиксирован.
const deviceAddr = "01"

// Мнемоники протокола MFC-500.
const (
	mnemFlow     = "FL" // мгновенный массовый расход
	mnemTemp     = "TE" // температура газа
	mnemSetpoint = "SP" // уставка расхода
	mnemValve    = "VM" // режим клапана: C (control) / Z (closed)
	mnemGas      = "GS" // номер таблицы газа
)

// Driver управляет расходомером-контроллером семейства MFC-500:
// эталон массового расхода и температуры плюс регулятор уставки.
type Driver struct {
	tr       interfaces.LineTransport
	bus      *codec.FlowBus
	settings models.InstrumentSettings
	logger   *logging.Logger

	mu           sync.Mutex
	gasConfirmed bool
}

var _ interfaces.MassFlowController = (*Driver)(nil)

// New создает драйвер расходомера поверх готового транспорта.
func New(tr interfaces.LineTransport, settings models.InstrumentSettings, logger *logging.Logger) *Driver {
	return &Driver{
		tr:       tr,
		bus:      codec.NewFlowBus(deviceAddr),
		settings: settings,
		logger:   logger.WithPrefix("MFC"),
	}
}

func (d *Driver) Model() string { return Model }

// Open проверяет настройки канала против возможностей модели и открывает порт.
// Неподдерживаемая настройка не должна дойти до транспорта.
func (d *Driver) Open() error {
	if err := d.validateSerial(); err != nil {
		return err
	}
	return d.tr.Open()
}

func (d *Driver) Close() error { return d.tr.Close() }

// validateSerial — модель принимает только 9600/19200 бод, 8N1.
func (d *Driver) validateSerial() error {
	s := d.settings.Serial
	if s.BaudRate != 9600 && s.BaudRate != 19200 {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "mfc.Open", "модель %s не поддерживает скорость %d", Model, s.BaudRate)
	}
	if s.DataBits != 8 || (s.Parity != "" && s.Parity != "none") || s.StopBits != 1 {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "mfc.Open", "модель %s поддерживает только формат кадра 8N1", Model)
	}
	return nil
}

// Read опрашивает расход и температуру и возвращает один снимок.
func (d *Driver) Read() (models.Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	flow, err := d.queryFloat(mnemFlow)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "mfc.Read", err)
	}
	temp, err := d.queryFloat(mnemTemp)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "mfc.Read", err)
	}

	return models.Reading{
		models.MassFlow:    flow,
		models.Temperature: temp,
	}, nil
}

// WriteSetpoint задает уставку массового расхода и сверяет эхо прибора
// с запрошенным значением: молча принятая кривая уставка искажает весь
// результат калибровки.
func (d *Driver) WriteSetpoint(t models.VariableType, value float64) error {
	if t != models.MassFlow {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "mfc.WriteSetpoint", "модель %s не управляет величиной %v", Model, t)
	}
	if value < 0 {
		return deverr.Newf(deverr.ErrOutOfRange, "mfc.WriteSetpoint", "отрицательная уставка расхода %v", value)
	}
	if value > d.settings.MaxSetpoint {
		return deverr.Newf(deverr.ErrOutOfRange, "mfc.WriteSetpoint", "уставка %v выше предела прибора %v", value, d.settings.MaxSetpoint)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeSetpointLocked(value)
}

func (d *Driver) writeSetpointLocked(value float64) error {
	echo, err := d.exchangeFloat(d.bus.Command(mnemSetpoint, value), mnemSetpoint)
	if err != nil {
		return deverr.New(deverr.ErrCommunicationError, "mfc.WriteSetpoint", err)
	}
	if math.Abs(echo-value) > d.settings.EchoTolerance {
		return deverr.Newf(deverr.ErrCommunicationError, "mfc.WriteSetpoint",
			"эхо уставки %v расходится с запрошенной %v сверх допуска %v", echo, value, d.settings.EchoTolerance)
	}
	d.logger.Debug("Setpoint confirmed", "value", value, "echo", echo)
	return nil
}

// ReadSetpoint возвращает уставку чтением из прибора: у модели есть
// настоящее чтение уставки, кэш не нужен.
func (d *Driver) ReadSetpoint(t models.VariableType) (float64, error) {
	if t != models.MassFlow {
		return 0, deverr.Newf(deverr.ErrUnsupportedSetting, "mfc.ReadSetpoint", "модель %s не управляет величиной %v", Model, t)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.queryFloat(mnemSetpoint)
	if err != nil {
		return 0, deverr.New(deverr.ErrCommunicationError, "mfc.ReadSetpoint", err)
	}
	return v, nil
}

// SetControlMode переводит клапан между регулированием и закрытым
// состоянием. Команда идемпотентна, повторный вызов безопасен.
func (d *Driver) SetControlMode(mode models.ControlMode) error {
	var valve string
	switch mode {
	case models.ModeActive:
		valve = "C"
	case models.ModePassive:
		valve = "Z"
	default:
		return deverr.Newf(deverr.ErrUnsupportedSetting, "mfc.SetControlMode", "модель %s не поддерживает режим %v", Model, mode)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	echo, err := d.exchangeRaw(d.bus.CommandRaw(mnemValve, valve), mnemValve)
	if err != nil {
		return deverr.New(deverr.ErrCommunicationError, "mfc.SetControlMode", err)
	}
	if echo != valve {
		return deverr.Newf(deverr.ErrCommunicationError, "mfc.SetControlMode", "эхо режима клапана '%s' вместо '%s'", echo, valve)
	}
	d.logger.Info("Valve mode set", "mode", mode)
	return nil
}

// SetGas выбирает таблицу пересчета газа и сверяет эхо прибора с ожидаемым
// обозначением. Расхождение означает чужую кривую пересчета: дальнейшие
// измерения расхода недостоверны, вызов обязан завершиться ошибкой.
func (d *Driver) SetGas(gas models.Gas) error {
	index, err := codec.GasIndex(gas)
	if err != nil {
		return err
	}
	want, err := codec.GasEcho(gas)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.gasConfirmed = false

	echo, err := d.exchangeRaw(d.bus.CommandRaw(mnemGas, strconv.Itoa(index)), mnemGas)
	if err != nil {
		return deverr.New(deverr.ErrCommunicationError, "mfc.SetGas", err)
	}
	if echo != want {
		return deverr.Newf(deverr.ErrCommunicationError, "mfc.SetGas",
			"прибор подтвердил газ '%s' вместо '%s'", echo, want)
	}

	d.gasConfirmed = true
	d.logger.Info("Gas table selected", "gas", gas, "index", index)
	return nil
}

// GasConfirmed сообщает, подтвердил ли прибор выбранный газ.
func (d *Driver) GasConfirmed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gasConfirmed
}

// MeasureStarved измеряет полный расход через контроллер, задушив регулятор
// заведомо завышенной уставкой. ОПАСНЫЙ РЕЖИМ: клапан работает на упоре,
// длительное применение изнашивает его. Не использовать как обычный путь
// чтения — только как сервисную операцию.
func (d *Driver) MeasureStarved() (float64, error) {
	starve := d.settings.MaxSetpoint * 1.1

	d.mu.Lock()
	defer d.mu.Unlock()

	echo, err := d.exchangeFloat(d.bus.Command(mnemSetpoint, starve), mnemSetpoint)
	if err != nil {
		return 0, deverr.New(deverr.ErrCommunicationError, "mfc.MeasureStarved", err)
	}
	_ = echo // прибор ограничивает уставку сам, эхо здесь не нормируется

	flow, err := d.queryFloat(mnemFlow)
	if err != nil {
		return 0, deverr.New(deverr.ErrCommunicationError, "mfc.MeasureStarved", err)
	}

	// Вернуть клапан в регулирование нулевой уставкой.
	if err := d.writeSetpointLocked(0); err != nil {
		return flow, err
	}
	d.logger.Warn("Starved flow measured, valve was driven against the stop", "flow", flow)
	return flow, nil
}

// queryFloat выполняет один обмен запрос-ответ и возвращает число.
func (d *Driver) queryFloat(mnemonic string) (float64, error) {
	return d.exchangeFloat(d.bus.Query(mnemonic), mnemonic)
}

func (d *Driver) exchangeFloat(line, mnemonic string) (float64, error) {
	tokens, err := d.exchange(line, mnemonic)
	if err != nil {
		return 0, err
	}
	return codec.ParseFloatToken(tokens[0])
}

func (d *Driver) exchangeRaw(line, mnemonic string) (string, error) {
	tokens, err := d.exchange(line, mnemonic)
	if err != nil {
		return "", err
	}
	return tokens[0], nil
}

func (d *Driver) exchange(line, mnemonic string) ([]string, error) {
	if err := d.tr.WriteLine(line); err != nil {
		return nil, err
	}
	resp, err := d.tr.ReadLine()
	if err != nil {
		return nil, err
	}
	return d.bus.ParseResponse(resp, mnemonic, 1)
}
