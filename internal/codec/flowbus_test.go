package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	deverr "github.com/iwtcode/calibService/pkg/errors"
)

func TestFlowBusCommandFormat(t *testing.T) {
	bus := NewFlowBus("01")

	require.Equal(t, "!01 SP 12.500", bus.Command("SP", 12.5), "Команда с числовым аргументом")
	require.Equal(t, "!01 SP 0.000", bus.Command("SP", 0), "Нулевая уставка форматируется явно")
	require.Equal(t, "!01 VM C", bus.CommandRaw("VM", "C"), "Команда с текстовым аргументом")
	require.Equal(t, "?01 FL", bus.Query("FL"), "Запрос значения")
}

func TestFlowBusParseResponse(t *testing.T) {
	bus := NewFlowBus("01")

	tokens, err := bus.ParseResponse("01 FL 12.345", "FL", 1)
	require.NoError(t, err, "Корректный ответ должен разбираться без ошибки")
	require.Equal(t, []string{"12.345"}, tokens)

	v, err := ParseFloatToken(tokens[0])
	require.NoError(t, err)
	require.InDelta(t, 12.345, v, 1e-9)
}

func TestFlowBusParseResponseMismatch(t *testing.T) {
	bus := NewFlowBus("01")

	cases := []struct {
		name string
		line string
	}{
		{"чужой адрес", "02 FL 12.345"},
		{"чужая мнемоника", "01 TE 12.345"},
		{"лишние токены", "01 FL 12.345 67.8"},
		{"недостаток токенов", "01 FL"},
		{"пустая строка", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := bus.ParseResponse(tc.line, "FL", 1)
			require.Error(t, err, "Расхождение с протоколом должно быть ошибкой")
			require.True(t, errors.Is(err, deverr.ErrUnexpectedResponse),
				"Десинхронизация должна классифицироваться как UnexpectedResponse")
		})
	}
}

func TestParseFloatTokenRejectsGarbage(t *testing.T) {
	_, err := ParseFloatToken("ERR")
	require.True(t, errors.Is(err, deverr.ErrUnexpectedResponse), "Нечисловой токен — UnexpectedResponse")
}

func TestFormatFloatIsLocaleIndependent(t *testing.T) {
	require.Equal(t, "1234.568", FormatFloat(1234.5678), "Без группировки разрядов, три знака после точки")
	require.Equal(t, "0.000", FormatFloat(0))
	require.Equal(t, "-3.100", FormatFloat(-3.1))
}

func TestTokenizeCleansEmbeddedFraming(t *testing.T) {
	require.Equal(t, []string{"01", "FL", "12.345"}, Tokenize("01\tFL\r\n12.345\r"),
		"Вкрапления CR/LF/TAB внутри ответа должны вычищаться")
	require.Empty(t, Tokenize("\r\n\t "), "Строка из одних разделителей дает пустой набор токенов")
}
