package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// serialPort — подмножество serial.Port, используемое транспортом.
// Выделено в интерфейс для подмены канала в тестах.
type serialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// openPort подменяется в тестах вместо открытия реального порта.
var openPort = func(name string, mode *serial.Mode) (serialPort, error) {
	return serial.Open(name, mode)
}

// LineTransport владеет одним последовательным каналом и обменивается
// строками с заданным терминатором. Все операции синхронны и блокирующи.
type LineTransport struct {
	settings models.SerialSettings
	port     serialPort
	logger   *logging.Logger
}

// NewLineTransport создает транспорт для канала с заданными настройками.
// Канал не открывается до вызова Open().
func NewLineTransport(settings models.SerialSettings, logger *logging.Logger) *LineTransport {
	return &LineTransport{
		settings: settings,
		logger:   logger.WithPrefix("TRANSPORT"),
	}
}

// Open монопольно занимает порт. Занятый или отсутствующий порт — PortUnavailable.
func (t *LineTransport) Open() error {
	if t.port != nil {
		return nil
	}

	mode, err := t.buildMode()
	if err != nil {
		return err
	}

	port, err := openPort(t.settings.PortName, mode)
	if err != nil {
		return deverr.New(deverr.ErrPortUnavailable, "transport.Open",
			fmt.Errorf("не удалось открыть порт '%s': %w", t.settings.PortName, err))
	}

	t.port = port
	t.logger.Info("Serial port opened", "port", t.settings.PortName, "baud", t.settings.BaudRate)
	return nil
}

// WriteLine отправляет строку с терминатором канала.
func (t *LineTransport) WriteLine(text string) error {
	if t.port == nil {
		return deverr.Newf(deverr.ErrPortUnavailable, "transport.WriteLine", "порт '%s' не открыт", t.settings.PortName)
	}

	data := append([]byte(text), t.settings.Terminator)
	n, err := t.port.Write(data)
	if err != nil {
		return deverr.New(deverr.ErrTimeout, "transport.WriteLine", err)
	}
	if n != len(data) {
		return deverr.Newf(deverr.ErrTimeout, "transport.WriteLine", "передано %d байт из %d", n, len(data))
	}

	t.logger.Debug("TX", "port", t.settings.PortName, "line", text)
	return nil
}

// ReadLine блокируется до прихода терминатора, но не дольше тайм-аута
// чтения. Терминатор и хвостовые CR/LF в результат не входят.
func (t *LineTransport) ReadLine() (string, error) {
	if t.port == nil {
		return "", deverr.Newf(deverr.ErrPortUnavailable, "transport.ReadLine", "порт '%s' не открыт", t.settings.PortName)
	}

	deadline := time.Now().Add(t.settings.ReadTimeout)
	line := make([]byte, 0, 64)
	buf := make([]byte, 1)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", deverr.Newf(deverr.ErrTimeout, "transport.ReadLine",
				"нет терминатора за %v, принято %d байт", t.settings.ReadTimeout, len(line))
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return "", deverr.New(deverr.ErrTimeout, "transport.ReadLine", err)
		}

		n, err := t.port.Read(buf)
		if err != nil {
			return "", deverr.New(deverr.ErrTimeout, "transport.ReadLine", err)
		}
		if n == 0 {
			// Библиотека возвращает (0, nil) по истечении тайм-аута чтения.
			return "", deverr.Newf(deverr.ErrTimeout, "transport.ReadLine",
				"нет терминатора за %v, принято %d байт", t.settings.ReadTimeout, len(line))
		}

		if buf[0] == t.settings.Terminator {
			break
		}
		line = append(line, buf[0])
	}

	text := trimEOL(string(line))
	t.logger.Debug("RX", "port", t.settings.PortName, "line", text)
	return text, nil
}

// Close освобождает порт. Безопасен на неоткрытом транспорте.
func (t *LineTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return deverr.New(deverr.ErrCommunicationError, "transport.Close", err)
	}
	t.logger.Info("Serial port closed", "port", t.settings.PortName)
	return nil
}

func (t *LineTransport) buildMode() (*serial.Mode, error) {
	var parity serial.Parity
	switch t.settings.Parity {
	case "", "none":
		parity = serial.NoParity
	case "even":
		parity = serial.EvenParity
	case "odd":
		parity = serial.OddParity
	default:
		return nil, deverr.Newf(deverr.ErrUnsupportedSetting, "transport.Open", "неизвестная четность '%s'", t.settings.Parity)
	}

	var stopBits serial.StopBits
	switch t.settings.StopBits {
	case 1:
		stopBits = serial.OneStopBit
	case 2:
		stopBits = serial.TwoStopBits
	default:
		return nil, deverr.Newf(deverr.ErrUnsupportedSetting, "transport.Open", "недопустимое число стоп-битов %d", t.settings.StopBits)
	}

	return &serial.Mode{
		BaudRate: t.settings.BaudRate,
		DataBits: t.settings.DataBits,
		Parity:   parity,
		StopBits: stopBits,
	}, nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\r' || s[len(s)-1] == '\n') {
		s = s[:len(s)-1]
	}
	return s
}
