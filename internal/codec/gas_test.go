package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/calibService/internal/domain/models"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

func TestGasIndexAndEcho(t *testing.T) {
	index, err := GasIndex(models.GasNitrogen)
	require.NoError(t, err)
	require.Equal(t, 1, index, "Номер таблицы азота зафиксирован прошивкой")

	echo, err := GasEcho(models.GasNitrogen)
	require.NoError(t, err)
	require.Equal(t, "N2", echo, "Эхо выбора газа должно совпадать буквально")
}

func TestGasTableCoversAllKnownGases(t *testing.T) {
	for g := models.GasAir; g <= models.GasXenon; g++ {
		_, err := GasIndex(g)
		require.NoError(t, err, "Газ %v должен присутствовать в таблице прибора", g)

		echo, err := GasEcho(g)
		require.NoError(t, err)
		require.Equal(t, g.String(), echo, "Эхо газа %v должно совпадать с его обозначением", g)
	}
}

func TestGasUnknownIsUnsupportedSetting(t *testing.T) {
	_, err := GasIndex(models.Gas(99))
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting))

	_, err = GasEcho(models.Gas(99))
	require.True(t, errors.Is(err, deverr.ErrUnsupportedSetting))
}
