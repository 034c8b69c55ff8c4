package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceErrorUnwrapsToKind(t *testing.T) {
	err := Newf(ErrOutOfRange, "mfc.WriteSetpoint", "уставка %v выше предела", 25.0)

	require.True(t, errors.Is(err, ErrOutOfRange), "Ошибка должна определяться по сентинелю вида")
	require.False(t, errors.Is(err, ErrTimeout), "Ошибка не должна совпадать с чужим сентинелем")
}

func TestDeviceErrorSurvivesWrapping(t *testing.T) {
	inner := New(ErrTimeout, "transport.ReadLine", errors.New("нет терминатора"))
	wrapped := fmt.Errorf("опрос эталона: %w", inner)

	require.True(t, errors.Is(wrapped, ErrTimeout), "Сентинель должен находиться сквозь обертки fmt.Errorf")
}

func TestDeviceErrorMessageContainsOp(t *testing.T) {
	err := New(ErrPortUnavailable, "transport.Open", errors.New("порт занят"))
	require.Contains(t, err.Error(), "transport.Open", "Сообщение должно содержать операцию")
	require.Contains(t, err.Error(), "порт занят", "Сообщение должно содержать причину")

	bare := New(ErrTimeout, "transport.ReadLine", nil)
	require.Contains(t, bare.Error(), "timeout", "Сообщение без причины содержит только вид и операцию")
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(New(ErrTimeout, "op", nil)), "Тайм-аут должен быть повторяемым")
	require.True(t, IsRetryable(New(ErrPortUnavailable, "op", nil)), "Занятый порт должен быть повторяемым")
	require.False(t, IsRetryable(New(ErrUnexpectedResponse, "op", nil)), "Десинхронизация протокола не лечится повтором")
	require.False(t, IsRetryable(New(ErrOutOfRange, "op", nil)), "Нарушение диапазона не лечится повтором")
}

func TestIsFatalForRun(t *testing.T) {
	require.True(t, IsFatalForRun(New(ErrPortUnavailable, "op", nil)))
	require.True(t, IsFatalForRun(New(ErrUnexpectedResponse, "op", nil)))
	require.True(t, IsFatalForRun(New(ErrConfigurationNotFound, "op", nil)))
	require.False(t, IsFatalForRun(New(ErrTimeout, "op", nil)), "Тайм-аут локален и не срывает весь прогон")
}
