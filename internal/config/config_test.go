package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/calibService/internal/domain/models"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	cfg, err := LoadConfiguration()
	require.NoError(t, err)
	require.NotNil(t, cfg, "Конфигурация не была загружена")

	require.Equal(t, "MFC-500", cfg.Equipment.FlowController.ModelLabel)
	require.Equal(t, 19200, cfg.Equipment.DutBank.BaudRate)
	require.Equal(t, "SF-20", cfg.Run.DutModelLabel)
	require.False(t, cfg.Kafka.Enabled, "Экспорт в Kafka по умолчанию выключен")
	require.False(t, cfg.Mqtt.Enabled, "Публикация в MQTT по умолчанию выключена")
}

func TestLoadConfigurationFromEnv(t *testing.T) {
	t.Setenv("MFC_PORT", "/dev/ttyS7")
	t.Setenv("MFC_MAX_SETPOINT", "50.5")
	t.Setenv("KAFKA_ENABLE", "true")
	t.Setenv("DUT_COUNT", "4")

	cfg, err := LoadConfiguration()
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyS7", cfg.Equipment.FlowController.PortName)
	require.InDelta(t, 50.5, cfg.Equipment.MfcMaxSetpoint, 1e-9)
	require.True(t, cfg.Kafka.Enabled)
	require.Equal(t, 4, cfg.Run.DutCount)
}

func TestResolveDutModel(t *testing.T) {
	m, err := ResolveDutModel("SF-20")
	require.NoError(t, err)
	require.InDelta(t, 20.0, m.RangeMax, 1e-9)
	require.InDelta(t, 24.0, m.SupplyVoltage, 1e-9)

	_, err = ResolveDutModel("SF-999")
	require.Error(t, err)
	require.True(t, errors.Is(err, deverr.ErrConfigurationNotFound),
		"Неизвестная метка модели DUT — ConfigurationNotFound")
}

func TestResolveTestProfile(t *testing.T) {
	p, err := ResolveTestProfile("flow-5pt-n2")
	require.NoError(t, err)
	require.Equal(t, models.GasNitrogen, p.Gas)
	require.Len(t, p.Setpoints, 5)
	require.Equal(t, 5*time.Second, p.Dwell)

	_, err = ResolveTestProfile("flow-unknown")
	require.True(t, errors.Is(err, deverr.ErrConfigurationNotFound))
}

func TestBuildRunConfig(t *testing.T) {
	cfg, err := LoadConfiguration()
	require.NoError(t, err)

	run, err := cfg.BuildRunConfig()
	require.NoError(t, err)

	require.Equal(t, "MFC-500", run.Equipment.FlowController.ModelLabel)
	require.Equal(t, byte('\r'), run.Equipment.FlowController.Serial.Terminator)
	require.Equal(t, byte('\n'), run.Equipment.PowerSupply.Serial.Terminator)
	require.Equal(t, "SF-20", run.DutModel.Label)
	require.Equal(t, "flow-5pt-n2", run.Profile.Label)

	require.Len(t, run.Duts, 8)
	for i, d := range run.Duts {
		require.Equal(t, i+1, d.Index, "Индексы DUT нумеруются с единицы")
		require.True(t, d.Selected)
	}
}

func TestBuildRunConfigUnknownLabels(t *testing.T) {
	t.Setenv("DUT_MODEL", "SF-999")
	cfg, err := LoadConfiguration()
	require.NoError(t, err)

	_, err = cfg.BuildRunConfig()
	require.True(t, errors.Is(err, deverr.ErrConfigurationNotFound),
		"Ошибка резолва меток должна всплыть до старта прогона")
}

func TestBuildRunConfigClampsDutCount(t *testing.T) {
	t.Setenv("DUT_COUNT", "99")
	cfg, err := LoadConfiguration()
	require.NoError(t, err)

	run, err := cfg.BuildRunConfig()
	require.NoError(t, err)
	require.Len(t, run.Duts, 8, "Число DUT ограничено посадочными местами стенда")
}
