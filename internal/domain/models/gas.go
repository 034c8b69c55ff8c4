package models

// Gas определяет калибровочный газ. Значение выбирает таблицу пересчета
// внутри расходомерных приборов, поэтому множество закрыто: новый газ
// требует новой прошивочной таблицы, а не нового значения здесь.
type Gas int

const (
	GasAir Gas = iota
	GasNitrogen
	GasOxygen
	GasArgon
	GasHelium
	GasHydrogen
	GasCarbonDioxide
	GasCarbonMonoxide
	GasMethane
	GasEthane
	GasEthylene
	GasPropane
	GasButane
	GasAmmonia
	GasNitrousOxide
	GasNitricOxide
	GasSulfurHexafluoride
	GasNeon
	GasKrypton
	GasXenon
)

var gasNames = map[Gas]string{
	GasAir:                "Air",
	GasNitrogen:           "N2",
	GasOxygen:             "O2",
	GasArgon:              "Ar",
	GasHelium:             "He",
	GasHydrogen:           "H2",
	GasCarbonDioxide:      "CO2",
	GasCarbonMonoxide:     "CO",
	GasMethane:            "CH4",
	GasEthane:             "C2H6",
	GasEthylene:           "C2H4",
	GasPropane:            "C3H8",
	GasButane:             "C4H10",
	GasAmmonia:            "NH3",
	GasNitrousOxide:       "N2O",
	GasNitricOxide:        "NO",
	GasSulfurHexafluoride: "SF6",
	GasNeon:               "Ne",
	GasKrypton:            "Kr",
	GasXenon:              "Xe",
}

func (g Gas) String() string {
	if name, ok := gasNames[g]; ok {
		return name
	}
	return "unknown"
}

// GasByName возвращает газ по его химическому обозначению.
func GasByName(name string) (Gas, bool) {
	for g, n := range gasNames {
		if n == name {
			return g, true
		}
	}
	return GasAir, false
}
