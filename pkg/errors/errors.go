package errors

import (
	"errors"
	"fmt"
)

// Сентинели таксономии ошибок обмена с приборами.
// Порядок — от самых специфичных к самым общим.
var (
	ErrUnsupportedSetting    = errors.New("unsupported setting")     // запрос недопустим для этой модели прибора
	ErrOutOfRange            = errors.New("value out of range")      // значение нарушает физические ограничения прибора
	ErrPortUnavailable       = errors.New("port unavailable")        // последовательный порт занят или отсутствует
	ErrTimeout               = errors.New("timeout")                 // нет ответа в отведенное окно ожидания
	ErrUnexpectedResponse    = errors.New("unexpected response")     // ответ не соответствует протоколу (десинхронизация)
	ErrCommunicationError    = errors.New("communication error")     // обобщенная ошибка обмена (обертка над транспортом/кодеком)
	ErrConfigurationNotFound = errors.New("configuration not found") // метка модели/профиля не найдена в настройках
)

// DeviceError представляет собой стандартизированную структуру ошибки
// уровня драйвера: вид ошибки, операция и внутренняя причина.
type DeviceError struct {
	Kind error  // один из сентинелей выше
	Op   string // операция драйвера, например "mfc.WriteSetpoint"
	Err  error  // внутренняя ошибка, может быть nil
}

func (e *DeviceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

// Unwrap отдает сентинель вида, чтобы работал errors.Is по таксономии.
func (e *DeviceError) Unwrap() error { return e.Kind }

// New создает новый экземпляр DeviceError.
func New(kind error, op string, err error) *DeviceError {
	return &DeviceError{Kind: kind, Op: op, Err: err}
}

// Newf создает DeviceError с форматированной внутренней причиной.
func Newf(kind error, op, format string, args ...interface{}) *DeviceError {
	return &DeviceError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// IsRetryable сообщает, имеет ли смысл повтор операции вызывающей стороной.
// Повторяемы только транзиентные ошибки канала; ошибки протокола и
// конфигурации повторением не лечатся.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrPortUnavailable)
}

// IsFatalForRun сообщает, что ошибка завершает весь прогон, а не один DUT.
func IsFatalForRun(err error) bool {
	return errors.Is(err, ErrPortUnavailable) ||
		errors.Is(err, ErrUnexpectedResponse) ||
		errors.Is(err, ErrConfigurationNotFound)
}
