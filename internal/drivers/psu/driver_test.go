package psu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

type fakeTransport struct {
	written []string
	replies []string
	opened  bool
}

func (f *fakeTransport) Open() error { f.opened = true; return nil }

func (f *fakeTransport) WriteLine(text string) error {
	f.written = append(f.written, text)
	return nil
}

func (f *fakeTransport) ReadLine() (string, error) {
	if len(f.replies) == 0 {
		return "", deverr.Newf(deverr.ErrTimeout, "fake.ReadLine", "ответов больше нет")
	}
	resp := f.replies[0]
	f.replies = f.replies[1:]
	return resp, nil
}

func (f *fakeTransport) Close() error { return nil }

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
		EchoTolerance: 0.05,
		MaxSetpoint:   30,
	}
}

func newDriver() (*Driver, *fakeTransport) {
	tr := &fakeTransport{}
	return New(tr, testSettings(), testLogger()), tr
}

func TestWriteSetpointVerifiedByReadback(t *testing.T) {
	d, tr := newDriver()
	tr.replies = []string{"+2.40000000E+01"}

	require.NoError(t, d.WriteSetpoint(models.Voltage, 24))
	require.Equal(t, []string{"SOUR:VOLT 24.000", "SOUR:VOLT?"}, tr.written,
		"Модель без эха подтверждается обратным чтением уставки")
}

func TestWriteSetpointReadbackDiverged(t *testing.T) {
	d, tr := newDriver()
	tr.replies = []string{"+2.30000000E+01"}

	err := d.WriteSetpoint(models.Voltage, 24)
	require.True(t, errors.Is(err, deverr.ErrCommunicationError),
		"Обратное чтение сверх допуска — CommunicationError")
}

func TestReadSetpointReturnsCacheWithoutIO(t *testing.T) {
	d, tr := newDriver()
	tr.replies = []string{"+2.40000000E+01"}
	require.NoError(t, d.WriteSetpoint(models.Voltage, 24))

	writesBefore := len(tr.written)
	v, err := d.ReadSetpoint(models.Voltage)
	require.NoError(t, err)
	require.InDelta(t, 24, v, 1e-9, "Кэш возвращает последнюю подтвержденную уставку")
	require.Len(t, tr.written, writesBefore, "Чтение уставки из кэша не обращается к прибору")
}

func TestReadSetpointBeforeAnyWrite(t *testing.T) {
	d, _ := newDriver()

	_, err := d.ReadSetpoint(models.Voltage)
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Незаданная уставка не выдумывается")
}

func TestWriteSetpointLimits(t *testing.T) {
	d, tr := newDriver()

	err := d.WriteSetpoint(models.Voltage, 31)
	require.True(t, errors.Is(err, deverr.ErrOutOfRange), "Напряжение выше предела прибора")

	err = d.WriteSetpoint(models.Current, 5.5)
	require.True(t, errors.Is(err, deverr.ErrOutOfRange), "Ток выше предела модели")

	err = d.WriteSetpoint(models.MassFlow, 1)
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Источник питания не управляет расходом")

	require.Empty(t, tr.written, "Отвергнутые уставки не должны дойти до канала")
}

func TestSetControlModeVerifiesOutputState(t *testing.T) {
	d, tr := newDriver()
	tr.replies = []string{"1", "0"}

	require.NoError(t, d.SetControlMode(models.ModeActive))
	require.NoError(t, d.SetControlMode(models.ModePassive))
	require.Equal(t, []string{"OUTP ON", "OUTP?", "OUTP OFF", "OUTP?"}, tr.written)
}

func TestSetControlModeStateMismatch(t *testing.T) {
	d, tr := newDriver()
	tr.replies = []string{"0"}

	err := d.SetControlMode(models.ModeActive)
	require.True(t, errors.Is(err, deverr.ErrUnexpectedResponse),
		"Выход не включился — UnexpectedResponse, а не молчаливый успех")
}

func TestRead(t *testing.T) {
	d, tr := newDriver()
	tr.replies = []string{"+2.39800000E+01", "+1.20000000E-01"}

	reading, err := d.Read()
	require.NoError(t, err)
	require.InDelta(t, 23.98, reading[models.Voltage], 1e-9)
	require.InDelta(t, 0.12, reading[models.Current], 1e-9)
	require.Equal(t, []string{"MEAS:VOLT:DC?", "MEAS:CURR:DC?"}, tr.written)
}
