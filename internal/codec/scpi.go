package codec

import (
	"strconv"

	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// SCPI собирает и разбирает строки SCPI-подобных приборов (источники
// питания, даталоггеры). Адресного префикса у семейства нет: на линии
// ровно одно устройство.
type SCPI struct{}

// Command собирает командную строку с числовым аргументом.
func (SCPI) Command(header string, value float64) string {
	return header + " " + FormatFloat(value)
}

// CommandRaw собирает командную строку с текстовым аргументом.
func (SCPI) CommandRaw(header, arg string) string {
	return header + " " + arg
}

// Query собирает строку запроса значения.
func (SCPI) Query(header string) string {
	return header + "?"
}

// ParseFloat разбирает ответ прибора как одно число. SCPI-приборы
// отвечают в экспоненциальной записи вида "+1.02500000E+01".
func (SCPI) ParseFloat(line string) (float64, error) {
	tokens := Tokenize(line)
	if len(tokens) != 1 {
		return 0, deverr.Newf(deverr.ErrUnexpectedResponse, "codec.SCPI.ParseFloat",
			"ожидался один токен, получено %d в ответе '%s'", len(tokens), line)
	}
	v, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return 0, deverr.Newf(deverr.ErrUnexpectedResponse, "codec.SCPI.ParseFloat",
			"ответ '%s' не является числом", tokens[0])
	}
	return v, nil
}
