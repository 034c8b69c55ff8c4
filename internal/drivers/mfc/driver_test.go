package mfc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// fakeTransport подменяет последовательный канал: записывает переданные
// строки и отдает заранее заданные ответы по порядку.
type fakeTransport struct {
	written []string
	replies []string
	readErr error
	opened  bool
	closed  bool
}

func (f *fakeTransport) Open() error { f.opened = true; return nil }

func (f *fakeTransport) WriteLine(text string) error {
	f.written = append(f.written, text)
	return nil
}

func (f *fakeTransport) ReadLine() (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	if len(f.replies) == 0 {
		return "", deverr.Newf(deverr.ErrTimeout, "fake.ReadLine", "ответов больше нет")
	}
	resp := f.replies[0]
	f.replies = f.replies[1:]
	return resp, nil
}

func (f *fakeTransport) Close() error { f.closed = true; return nil }

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{Enabled: false}, "TEST")
}

func testSettings() models.InstrumentSettings {
	return models.InstrumentSettings{
		ModelLabel: Model,
		Serial: models.SerialSettings{
			BaudRate: 9600,
			DataBits: 8,
			Parity:   "none",
			StopBits: 1,
		},
		EchoTolerance: 0.5,
		MaxSetpoint:   20,
	}
}

func newDriver(settings models.InstrumentSettings) (*Driver, *fakeTransport) {
	tr := &fakeTransport{}
	return New(tr, settings, testLogger()), tr
}

func TestOpenValidatesSerialBeforeTransport(t *testing.T) {
	settings := testSettings()
	settings.Serial.BaudRate = 4800

	d, tr := newDriver(settings)
	err := d.Open()
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Неподдерживаемая скорость — UnsupportedSetting")
	require.False(t, tr.opened, "Неподдерживаемая настройка не должна дойти до транспорта")
}

func TestRead(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 FL 12.345", "01 TE 23.500"}

	reading, err := d.Read()
	require.NoError(t, err)
	require.InDelta(t, 12.345, reading[models.MassFlow], 1e-9)
	require.InDelta(t, 23.5, reading[models.Temperature], 1e-9)
	require.Equal(t, []string{"?01 FL", "?01 TE"}, tr.written)
}

func TestReadWrapsTransportError(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.readErr = deverr.Newf(deverr.ErrTimeout, "fake.ReadLine", "тишина на линии")

	_, err := d.Read()
	require.True(t, errors.Is(err, deverr.ErrCommunicationError), "Ошибка канала при опросе — CommunicationError")
}

func TestWriteSetpointEchoConfirmed(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 SP 10.100"}

	require.NoError(t, d.WriteSetpoint(models.MassFlow, 10), "Эхо в пределах допуска принимается")
	require.Equal(t, []string{"!01 SP 10.000"}, tr.written)
}

func TestWriteSetpointEchoDiverged(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 SP 12.000"}

	err := d.WriteSetpoint(models.MassFlow, 10)
	require.True(t, errors.Is(err, deverr.ErrCommunicationError),
		"Эхо сверх допуска — CommunicationError: прибор принял не ту уставку")
}

func TestWriteSetpointRangeCheckedBeforeIO(t *testing.T) {
	d, tr := newDriver(testSettings())

	err := d.WriteSetpoint(models.MassFlow, -1)
	require.True(t, errors.Is(err, deverr.ErrOutOfRange), "Отрицательная уставка — OutOfRange")

	err = d.WriteSetpoint(models.MassFlow, 20.5)
	require.True(t, errors.Is(err, deverr.ErrOutOfRange), "Уставка выше предела прибора — OutOfRange")

	require.Empty(t, tr.written, "Недопустимая уставка не должна дойти до канала")
}

func TestWriteSetpointUnsupportedVariable(t *testing.T) {
	d, tr := newDriver(testSettings())

	err := d.WriteSetpoint(models.Voltage, 5)
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Расходомер не управляет напряжением")
	require.Empty(t, tr.written)
}

func TestReadSetpointQueriesDevice(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 SP 7.500"}

	v, err := d.ReadSetpoint(models.MassFlow)
	require.NoError(t, err)
	require.InDelta(t, 7.5, v, 1e-9)
	require.Equal(t, []string{"?01 SP"}, tr.written, "У модели настоящее чтение уставки, не кэш")
}

func TestSetControlMode(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 VM C", "01 VM Z"}

	require.NoError(t, d.SetControlMode(models.ModeActive))
	require.NoError(t, d.SetControlMode(models.ModePassive))
	require.Equal(t, []string{"!01 VM C", "!01 VM Z"}, tr.written)

	err := d.SetControlMode(models.ModeMeasure)
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Режим только-измерение модели недоступен")
}

func TestSetControlModeEchoMismatch(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 VM Z"}

	err := d.SetControlMode(models.ModeActive)
	require.True(t, errors.Is(err, deverr.ErrCommunicationError), "Клапан подтвердил чужой режим")
}

func TestSetGasConfirmed(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 GS N2"}

	require.False(t, d.GasConfirmed(), "До выбора газ не подтвержден")
	require.NoError(t, d.SetGas(models.GasNitrogen))
	require.True(t, d.GasConfirmed())
	require.Equal(t, []string{"!01 GS 1"}, tr.written, "Газ передается номером таблицы прошивки")
}

func TestSetGasEchoMismatchInvalidatesConfirmation(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 GS N2", "01 GS N2"}

	require.NoError(t, d.SetGas(models.GasNitrogen))
	require.True(t, d.GasConfirmed())

	err := d.SetGas(models.GasArgon)
	require.True(t, errors.Is(err, deverr.ErrCommunicationError),
		"Подтверждение чужого газа — CommunicationError: кривая пересчета недостоверна")
	require.False(t, d.GasConfirmed(), "Несошедшееся эхо снимает прежнее подтверждение")
}

func TestMeasureStarvedRestoresZeroSetpoint(t *testing.T) {
	d, tr := newDriver(testSettings())
	tr.replies = []string{"01 SP 20.000", "01 FL 19.800", "01 SP 0.000"}

	flow, err := d.MeasureStarved()
	require.NoError(t, err)
	require.InDelta(t, 19.8, flow, 1e-9)
	require.Equal(t, []string{"!01 SP 22.000", "?01 FL", "!01 SP 0.000"}, tr.written,
		"После измерения на упоре уставка обязана вернуться в ноль")
}
