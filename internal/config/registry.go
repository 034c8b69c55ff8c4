package config

import (
	"time"

	"github.com/iwtcode/calibService/internal/domain/models"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// Встроенные модели испытуемых датчиков. Реестр пополняется по мере
// освоения новых изделий на участке.
var dutModels = map[string]models.DutModelSettings{
	"SF-20": {
		Label:            "SF-20",
		RangeMin:         0,
		RangeMax:         20,
		SupplyVoltage:    24,
		TolerancePercent: 1.5,
	},
	"SF-50": {
		Label:            "SF-50",
		RangeMin:         0,
		RangeMax:         50,
		SupplyVoltage:    24,
		TolerancePercent: 2.0,
	},
	"SF-5L": {
		Label:            "SF-5L",
		RangeMin:         0,
		RangeMax:         5,
		SupplyVoltage:    12,
		TolerancePercent: 1.0,
	},
}

// Встроенные калибровочные последовательности.
var testProfiles = map[string]models.TestProfile{
	"flow-5pt-n2": {
		Label:     "flow-5pt-n2",
		Gas:       models.GasNitrogen,
		Setpoints: []float64{2, 5, 10, 15, 20},
		Dwell:     5 * time.Second,
	},
	"flow-3pt-air": {
		Label:     "flow-3pt-air",
		Gas:       models.GasAir,
		Setpoints: []float64{5, 10, 20},
		Dwell:     3 * time.Second,
	},
	"flow-quick-n2": {
		Label:     "flow-quick-n2",
		Gas:       models.GasNitrogen,
		Setpoints: []float64{10},
		Dwell:     2 * time.Second,
	},
}

// ResolveDutModel находит модель DUT по метке.
func ResolveDutModel(label string) (models.DutModelSettings, error) {
	m, ok := dutModels[label]
	if !ok {
		return models.DutModelSettings{}, deverr.Newf(deverr.ErrConfigurationNotFound,
			"config.ResolveDutModel", "модель DUT '%s' не найдена в реестре", label)
	}
	return m, nil
}

// ResolveTestProfile находит калибровочную последовательность по метке.
func ResolveTestProfile(label string) (models.TestProfile, error) {
	p, ok := testProfiles[label]
	if !ok {
		return models.TestProfile{}, deverr.Newf(deverr.ErrConfigurationNotFound,
			"config.ResolveTestProfile", "профиль испытаний '%s' не найден в реестре", label)
	}
	return p, nil
}

// DutModelLabels возвращает метки всех известных моделей DUT.
func DutModelLabels() []string {
	labels := make([]string, 0, len(dutModels))
	for label := range dutModels {
		labels = append(labels, label)
	}
	return labels
}

// TestProfileLabels возвращает метки всех известных профилей.
func TestProfileLabels() []string {
	labels := make([]string, 0, len(testProfiles))
	for label := range testProfiles {
		labels = append(labels, label)
	}
	return labels
}

// BuildRunConfig собирает полную конфигурацию прогона из настроек приложения.
// Все выбранные по меткам сущности резолвятся здесь, до старта прогона.
func (c *AppConfig) BuildRunConfig() (models.RunConfig, error) {
	dutModel, err := ResolveDutModel(c.Run.DutModelLabel)
	if err != nil {
		return models.RunConfig{}, err
	}
	profile, err := ResolveTestProfile(c.Run.ProfileLabel)
	if err != nil {
		return models.RunConfig{}, err
	}

	eq := c.Equipment
	duts := make([]models.DutSelection, clampDutCount(c.Run.DutCount))
	for i := range duts {
		duts[i] = models.DutSelection{Index: i + 1, Selected: true}
	}

	return models.RunConfig{
		Equipment: models.EquipmentSettings{
			FlowController: models.InstrumentSettings{
				ModelLabel:    eq.FlowController.ModelLabel,
				Serial:        serialSettings(eq.FlowController, '\r', eq.ReadTimeout),
				EchoTolerance: eq.MfcEchoTolerance,
				MaxSetpoint:   eq.MfcMaxSetpoint,
			},
			PowerSupply: models.InstrumentSettings{
				ModelLabel:    eq.PowerSupply.ModelLabel,
				Serial:        serialSettings(eq.PowerSupply, '\n', eq.ReadTimeout),
				EchoTolerance: eq.PsuEchoTolerance,
				MaxSetpoint:   30,
			},
			Datalogger: models.InstrumentSettings{
				ModelLabel: eq.Datalogger.ModelLabel,
				Serial:     serialSettings(eq.Datalogger, '\n', eq.ReadTimeout),
			},
			DutBank: models.InstrumentSettings{
				ModelLabel: eq.DutBank.ModelLabel,
				Serial:     serialSettings(eq.DutBank, '\r', eq.ReadTimeout),
			},
		},
		DutModel: dutModel,
		Profile:  profile,
		Duts:     duts,
	}, nil
}

func clampDutCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

func serialSettings(inst InstrumentConfig, terminator byte, readTimeout time.Duration) models.SerialSettings {
	return models.SerialSettings{
		PortName:     inst.PortName,
		BaudRate:     inst.BaudRate,
		DataBits:     8,
		Parity:       "none",
		StopBits:     1,
		ReadTimeout:  readTimeout,
		WriteTimeout: readTimeout,
		Terminator:   terminator,
	}
}
