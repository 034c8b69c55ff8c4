package codec

import (
	"github.com/iwtcode/calibService/internal/domain/models"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// gasEntry связывает газ с номером таблицы пересчета в приборе и строкой,
// которой прибор подтверждает выбор.
type gasEntry struct {
	index int
	echo  string
}

// Таблица газов расходомерного семейства. Номера фиксированы прошивкой
// прибора. Эхо обязано совпасть буквально: молчаливое расхождение означает
// чужую кривую пересчета и обесценивает все последующие показания расхода.
var gasTable = map[models.Gas]gasEntry{
	models.GasAir:                {0, "Air"},
	models.GasNitrogen:           {1, "N2"},
	models.GasOxygen:             {2, "O2"},
	models.GasArgon:              {3, "Ar"},
	models.GasHelium:             {4, "He"},
	models.GasHydrogen:           {5, "H2"},
	models.GasCarbonDioxide:      {6, "CO2"},
	models.GasCarbonMonoxide:     {7, "CO"},
	models.GasMethane:            {8, "CH4"},
	models.GasEthane:             {9, "C2H6"},
	models.GasEthylene:           {10, "C2H4"},
	models.GasPropane:            {11, "C3H8"},
	models.GasButane:             {12, "C4H10"},
	models.GasAmmonia:            {13, "NH3"},
	models.GasNitrousOxide:       {14, "N2O"},
	models.GasNitricOxide:        {15, "NO"},
	models.GasSulfurHexafluoride: {16, "SF6"},
	models.GasNeon:               {17, "Ne"},
	models.GasKrypton:            {18, "Kr"},
	models.GasXenon:              {19, "Xe"},
}

// GasIndex возвращает номер таблицы пересчета газа в приборе.
func GasIndex(g models.Gas) (int, error) {
	entry, ok := gasTable[g]
	if !ok {
		return 0, deverr.Newf(deverr.ErrUnsupportedSetting, "codec.GasIndex", "газ %v отсутствует в таблице прибора", g)
	}
	return entry.index, nil
}

// GasEcho возвращает строку, которой прибор обязан подтвердить выбор газа.
func GasEcho(g models.Gas) (string, error) {
	entry, ok := gasTable[g]
	if !ok {
		return "", deverr.Newf(deverr.ErrUnsupportedSetting, "codec.GasEcho", "газ %v отсутствует в таблице прибора", g)
	}
	return entry.echo, nil
}
