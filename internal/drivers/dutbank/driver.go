package dutbank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/iwtcode/calibService/internal/codec"
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// Model — метка модели стендового мультиплексора в настройках обвязки.
const Model = "FIX-8"

// Channels — число посадочных мест стенда.
const Channels = 8

// Мнемоники протокола стенда. Протокол тот же строковый, что у
// расходомерного семейства; роль адреса играет номер посадочного места.
const (
	mnemSerial = "SN" // серийный номер DUT на месте
	mnemValue  = "MV" // измеренное DUT значение расхода
)

// Driver опрашивает испытуемые датчики через стендовый мультиплексор.
// Мультиплексор — одно логическое устройство на линии; DUT адресуются
// номером посадочного места внутри него.
type Driver struct {
	tr       interfaces.LineTransport
	settings models.InstrumentSettings
	logger   *logging.Logger
	mu       sync.Mutex
}

var _ interfaces.DutBank = (*Driver)(nil)

// New создает драйвер стенда поверх готового транспорта.
func New(tr interfaces.LineTransport, settings models.InstrumentSettings, logger *logging.Logger) *Driver {
	return &Driver{
		tr:       tr,
		settings: settings,
		logger:   logger.WithPrefix("DUTBANK"),
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

// validateSerial — стенд работает только на 19200 бод, 8N1.
func (d *Driver) validateSerial() error {
	s := d.settings.Serial
	if s.BaudRate != 19200 {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "dutbank.Open", "модель %s работает только на 19200 бод", Model)
	}
	if s.DataBits != 8 || (s.Parity != "" && s.Parity != "none") || s.StopBits != 1 {
		return deverr.Newf(deverr.ErrUnsupportedSetting, "dutbank.Open", "модель %s поддерживает только формат кадра 8N1", Model)
	}
	return nil
}

// Probe опрашивает посадочное место и возвращает серийный номер DUT.
// Тайм-аут возвращается как есть: для вызывающей стороны это "место
// пусто", а не ошибка стенда.
func (d *Driver) Probe(channel int) (string, error) {
	bus, err := d.channelBus(channel)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tokens, err := d.exchange(bus, bus.Query(mnemSerial), mnemSerial)
	if err != nil {
		if errors.Is(err, deverr.ErrTimeout) {
			return "", err
		}
		return "", deverr.New(deverr.ErrCommunicationError, "dutbank.Probe", err)
	}

	d.logger.Debug("DUT probed", "channel", channel, "serial", tokens[0])
	return tokens[0], nil
}

// ReadChannel возвращает показание DUT на посадочном месте.
func (d *Driver) ReadChannel(channel int) (models.Reading, error) {
	bus, err := d.channelBus(channel)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tokens, err := d.exchange(bus, bus.Query(mnemValue), mnemValue)
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "dutbank.ReadChannel", err)
	}
	v, err := codec.ParseFloatToken(tokens[0])
	if err != nil {
		return nil, deverr.New(deverr.ErrCommunicationError, "dutbank.ReadChannel", err)
	}

	return models.Reading{models.MassFlow: v}, nil
}

// channelBus возвращает кодек для посадочного места.
func (d *Driver) channelBus(channel int) (*codec.FlowBus, error) {
	if channel < 1 || channel > Channels {
		return nil, deverr.Newf(deverr.ErrOutOfRange, "dutbank.channelBus", "посадочное место %d вне диапазона 1..%d", channel, Channels)
	}
	return codec.NewFlowBus(fmt.Sprintf("%02d", channel)), nil
}

func (d *Driver) exchange(bus *codec.FlowBus, line, mnemonic string) ([]string, error) {
	if err := d.tr.WriteLine(line); err != nil {
		return nil, err
	}
	resp, err := d.tr.ReadLine()
	if err != nil {
		return nil, err
	}
	return bus.ParseResponse(resp, mnemonic, 1)
}
