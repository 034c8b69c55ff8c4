package codec

import (
	"strconv"
	"strings"

	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// FlowBus собирает и разбирает строки протокола расходомерного семейства.
// Формат линии:
//
//	команда: "!<адрес> <МНЕМОНИКА> <аргументы...>"
//	запрос:  "?<адрес> <МНЕМОНИКА>"
//	ответ:   "<адрес> <МНЕМОНИКА> <значения...>"
//
// Устройство всегда эхом возвращает свой адрес и мнемонику: их сверка —
// единственный способ заметить десинхронизацию на линии.
type FlowBus struct {
	addr string
}

// NewFlowBus создает кодек для устройства с заданным адресом на линии.
func NewFlowBus(addr string) *FlowBus {
	return &FlowBus{addr: addr}
}

// Command собирает командную строку с числовыми аргументами.
func (c *FlowBus) Command(mnemonic string, args ...float64) string {
	var b strings.Builder
	b.WriteByte('!')
	b.WriteString(c.addr)
	b.WriteByte(' ')
	b.WriteString(mnemonic)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(FormatFloat(a))
	}
	return b.String()
}

// CommandRaw собирает командную строку с нечисловым аргументом.
func (c *FlowBus) CommandRaw(mnemonic, arg string) string {
	return "!" + c.addr + " " + mnemonic + " " + arg
}

// Query собирает строку запроса значения.
func (c *FlowBus) Query(mnemonic string) string {
	return "?" + c.addr + " " + mnemonic
}

// ParseResponse разбирает строку ответа на запрос/команду с мнемоникой
// mnemonic и возвращает токены значений. Несовпадение адреса, мнемоники
// или числа токенов — UnexpectedResponse: протокол рассинхронизирован,
// слепой повтор этого не исправит.
func (c *FlowBus) ParseResponse(line, mnemonic string, nValues int) ([]string, error) {
	tokens := Tokenize(line)
	if len(tokens) != 2+nValues {
		return nil, deverr.Newf(deverr.ErrUnexpectedResponse, "codec.ParseResponse",
			"ожидалось %d токенов, получено %d в ответе '%s'", 2+nValues, len(tokens), line)
	}
	if tokens[0] != c.addr {
		return nil, deverr.Newf(deverr.ErrUnexpectedResponse, "codec.ParseResponse",
			"адрес ответа '%s' не совпадает с '%s'", tokens[0], c.addr)
	}
	if tokens[1] != mnemonic {
		return nil, deverr.Newf(deverr.ErrUnexpectedResponse, "codec.ParseResponse",
			"мнемоника ответа '%s' не совпадает с '%s'", tokens[1], mnemonic)
	}
	return tokens[2:], nil
}

// ParseFloatToken приводит токен ответа к числу.
func ParseFloatToken(token string) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, deverr.Newf(deverr.ErrUnexpectedResponse, "codec.ParseFloatToken",
			"токен '%s' не является числом", token)
	}
	return v, nil
}

// FormatFloat форматирует число для линии: фиксированные три знака после
// точки, без группировки разрядов и независимо от локали хоста. Часть
// приборов отвергает или неверно разбирает локализованные числа.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Tokenize разбивает строку ответа на токены, предварительно вычищая
// вкрапления CR/LF/TAB, которые встречаются внутри ответов части приборов.
func Tokenize(line string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', '\t':
			return ' '
		}
		return r
	}, line)
	return strings.Fields(cleaned)
}
