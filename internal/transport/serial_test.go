package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// fakePort подменяет последовательный порт: отдает заранее заданные байты
// по одному и записывает все переданное. Пустой приемный буфер ведет себя
// как настоящий порт по тайм-ауту: (0, nil).
type fakePort struct {
	rx     []byte
	tx     []byte
	closed bool
}

func (p *fakePort) Read(buf []byte) (int, error) {
	if len(p.rx) == 0 {
		return 0, nil
	}
	buf[0] = p.rx[0]
	p.rx = p.rx[1:]
	return 1, nil
}

func (p *fakePort) Write(data []byte) (int, error) {
	p.tx = append(p.tx, data...)
	return len(data), nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func testLogger() *logging.Logger {
	return logging.NewLogger(&logging.Config{Enabled: false}, "TEST")
}

func testSettings() models.SerialSettings {
	return models.SerialSettings{
		PortName:    "/dev/ttyFAKE",
		BaudRate:    9600,
		DataBits:    8,
		Parity:      "none",
		StopBits:    1,
		ReadTimeout: 200 * time.Millisecond,
		Terminator:  '\r',
	}
}

func openFake(t *testing.T, settings models.SerialSettings) (*LineTransport, *fakePort) {
	t.Helper()
	port := &fakePort{}
	orig := openPort
	openPort = func(string, *serial.Mode) (serialPort, error) { return port, nil }
	t.Cleanup(func() { openPort = orig })

	tr := NewLineTransport(settings, testLogger())
	require.NoError(t, tr.Open(), "Открытие подмененного порта не должно падать")
	return tr, port
}

func TestWriteLineAppendsTerminator(t *testing.T) {
	tr, port := openFake(t, testSettings())

	require.NoError(t, tr.WriteLine("?01 FL"))
	require.Equal(t, "?01 FL\r", string(port.tx), "Терминатор канала должен добавляться к строке")
}

func TestReadLineStopsAtTerminator(t *testing.T) {
	tr, port := openFake(t, testSettings())
	port.rx = []byte("01 FL 12.345\rостаток")

	line, err := tr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "01 FL 12.345", line, "Терминатор не входит в результат")
	require.Equal(t, "остаток", string(port.rx), "Байты после терминатора остаются в канале")
}

func TestReadLineTrimsTrailingEOL(t *testing.T) {
	tr, port := openFake(t, testSettings())
	port.rx = []byte("01 FL 12.345\n\r")

	line, err := tr.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "01 FL 12.345", line, "Хвостовые CR/LF перед терминатором вычищаются")
}

func TestReadLineTimeout(t *testing.T) {
	tr, port := openFake(t, testSettings())
	port.rx = []byte("без терминатора")

	_, err := tr.ReadLine()
	require.Error(t, err)
	require.True(t, errors.Is(err, deverr.ErrTimeout), "Нет терминатора в окне ожидания — Timeout")
}

func TestOpenUnavailablePort(t *testing.T) {
	orig := openPort
	openPort = func(string, *serial.Mode) (serialPort, error) {
		return nil, errors.New("device busy")
	}
	t.Cleanup(func() { openPort = orig })

	tr := NewLineTransport(testSettings(), testLogger())
	err := tr.Open()
	require.Error(t, err)
	require.True(t, errors.Is(err, deverr.ErrPortUnavailable), "Занятый порт — PortUnavailable")
}

func TestOpenRejectsBadFrameSettings(t *testing.T) {
	badParity := testSettings()
	badParity.Parity = "mark"
	err := NewLineTransport(badParity, testLogger()).Open()
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Неизвестная четность — UnsupportedSetting")

	badStop := testSettings()
	badStop.StopBits = 3
	err = NewLineTransport(badStop, testLogger()).Open()
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting), "Недопустимые стоп-биты — UnsupportedSetting")
}

func TestIOWithoutOpenIsPortUnavailable(t *testing.T) {
	tr := NewLineTransport(testSettings(), testLogger())

	err := tr.WriteLine("?01 FL")
	require.True(t, errors.Is(err, deverr.ErrPortUnavailable))

	_, err = tr.ReadLine()
	require.True(t, errors.Is(err, deverr.ErrPortUnavailable))

	require.NoError(t, tr.Close(), "Close на неоткрытом транспорте безопасен")
}

func TestCloseReleasesPort(t *testing.T) {
	tr, port := openFake(t, testSettings())

	require.NoError(t, tr.Close())
	require.True(t, port.closed, "Порт должен быть освобожден")
	require.NoError(t, tr.Close(), "Повторный Close безопасен")
}
