package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	deverr "github.com/iwtcode/calibService/pkg/errors"
)

func TestSCPIBuilders(t *testing.T) {
	var s SCPI

	require.Equal(t, "SOUR:VOLT 24.000", s.Command("SOUR:VOLT", 24))
	require.Equal(t, "OUTP ON", s.CommandRaw("OUTP", "ON"))
	require.Equal(t, "MEAS:VOLT:DC?", s.Query("MEAS:VOLT:DC"))
}

func TestSCPIParseFloatExponentNotation(t *testing.T) {
	var s SCPI

	v, err := s.ParseFloat("+1.02500000E+01")
	require.NoError(t, err, "Экспоненциальная запись SCPI должна разбираться")
	require.InDelta(t, 10.25, v, 1e-9)

	v, err = s.ParseFloat("-2.5E-01\r")
	require.NoError(t, err, "Хвостовой CR не должен мешать разбору")
	require.InDelta(t, -0.25, v, 1e-9)
}

func TestSCPIParseFloatRejectsBadResponses(t *testing.T) {
	var s SCPI

	for _, line := range []string{"", "1.0 2.0", "OVERLOAD"} {
		_, err := s.ParseFloat(line)
		require.Error(t, err, "Ответ '%s' должен отвергаться", line)
		require.True(t, errors.Is(err, deverr.ErrUnexpectedResponse))
	}
}
