package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig содержит конфигурацию приложения
type AppConfig struct {
	AutoStart bool // запускать прогон сразу после старта приложения
	Logging   LoggerConfig
	Kafka     KafkaConfig
	Mqtt      MqttConfig
	Equipment EquipmentConfig
	Run       RunSettings
}

// LoggerConfig содержит настройки логгера
type LoggerConfig struct {
	Enable     bool
	LogsDir    string
	Level      string
	SavingDays int
}

// KafkaConfig содержит настройки экспорта отчетов в Kafka
type KafkaConfig struct {
	Enabled bool
	Broker  string
	Topic   string
}

// MqttConfig содержит настройки публикации статуса прогона в MQTT
type MqttConfig struct {
	Enabled   bool
	Broker    string
	Username  string
	Password  string
	BaseTopic string
	QoS       int
}

// InstrumentConfig содержит настройки одного прибора обвязки
type InstrumentConfig struct {
	ModelLabel string
	PortName   string
	BaudRate   int
}

// EquipmentConfig содержит настройки приборов обвязки
type EquipmentConfig struct {
	FlowController InstrumentConfig
	PowerSupply    InstrumentConfig
	Datalogger     InstrumentConfig
	DutBank        InstrumentConfig
	// MfcMaxSetpoint — предел уставки расходомера. Используется и как
	// полная шкала при нормировании ошибки DUT у нуля эталона.
	MfcMaxSetpoint float64
	// MfcEchoTolerance — абсолютный допуск эха уставки расходомера.
	// Величина прикладная, не из паспорта прибора: уточнение допуска —
	// вопрос точности калибровки, поэтому значение настраиваемое.
	MfcEchoTolerance float64
	// PsuEchoTolerance — допуск обратного чтения уставки источника питания.
	PsuEchoTolerance float64
	// ReadTimeout — окно ожидания ответа прибора.
	ReadTimeout time.Duration
}

// RunSettings содержит выбор конфигурации прогона по меткам
type RunSettings struct {
	DutModelLabel string
	ProfileLabel  string
	DutCount      int
}

// LoadConfiguration загружает конфигурацию из .env файла или переменных окружения
func LoadConfiguration() (*AppConfig, error) {
	_ = godotenv.Load()

	config := &AppConfig{
		AutoStart: getEnvAsBool("CALIB_AUTO_START", false),
		Logging: LoggerConfig{
			Enable:     getEnvAsBool("LOGGER_ENABLE", true),
			LogsDir:    getEnv("LOGGER_LOGS_DIR", "./logs"),
			Level:      getEnv("LOGGER_LOG_LEVEL", "DEBUG"),
			SavingDays: getEnvAsInt("LOGGER_SAVING_DAYS", 7),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvAsBool("KAFKA_ENABLE", false),
			Broker:  getEnv("KAFKA_BROKER", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "calib_reports"),
		},
		Mqtt: MqttConfig{
			Enabled:   getEnvAsBool("MQTT_ENABLE", false),
			Broker:    getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			Username:  getEnv("MQTT_USERNAME", ""),
			Password:  getEnv("MQTT_PASSWORD", ""),
			BaseTopic: getEnv("MQTT_BASE_TOPIC", "calib/run"),
			QoS:       getEnvAsInt("MQTT_QOS", 1),
		},
		Equipment: EquipmentConfig{
			FlowController: InstrumentConfig{
				ModelLabel: getEnv("MFC_MODEL", "MFC-500"),
				PortName:   getEnv("MFC_PORT", "/dev/ttyUSB0"),
				BaudRate:   getEnvAsInt("MFC_BAUD", 9600),
			},
			PowerSupply: InstrumentConfig{
				ModelLabel: getEnv("PSU_MODEL", "PSU-3303"),
				PortName:   getEnv("PSU_PORT", "/dev/ttyUSB1"),
				BaudRate:   getEnvAsInt("PSU_BAUD", 9600),
			},
			Datalogger: InstrumentConfig{
				ModelLabel: getEnv("DLOG_MODEL", "DL-970"),
				PortName:   getEnv("DLOG_PORT", "/dev/ttyUSB2"),
				BaudRate:   getEnvAsInt("DLOG_BAUD", 9600),
			},
			DutBank: InstrumentConfig{
				ModelLabel: getEnv("DUTBANK_MODEL", "FIX-8"),
				PortName:   getEnv("DUTBANK_PORT", "/dev/ttyUSB3"),
				BaudRate:   getEnvAsInt("DUTBANK_BAUD", 19200),
			},
			MfcMaxSetpoint:   getEnvAsFloat("MFC_MAX_SETPOINT", 20.0),
			MfcEchoTolerance: getEnvAsFloat("MFC_ECHO_TOLERANCE", 1.0),
			PsuEchoTolerance: getEnvAsFloat("PSU_ECHO_TOLERANCE", 0.05),
			ReadTimeout:      time.Duration(getEnvAsInt("SERIAL_READ_TIMEOUT_MS", 500)) * time.Millisecond,
		},
		Run: RunSettings{
			DutModelLabel: getEnv("DUT_MODEL", "SF-20"),
			ProfileLabel:  getEnv("TEST_PROFILE", "flow-5pt-n2"),
			DutCount:      getEnvAsInt("DUT_COUNT", 8),
		},
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(name string, defaultValue int) int {
	valueStr := getEnv(name, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(name string, defaultValue float64) float64 {
	valueStr := getEnv(name, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	val, _ := strconv.ParseBool(value)
	return val
}
