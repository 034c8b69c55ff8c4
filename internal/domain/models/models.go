package models

import "time"

// VariableType определяет физическую величину, измеряемую или задаваемую прибором.
type VariableType int

const (
	MassFlow VariableType = iota
	VolumeFlow
	Velocity
	Pressure
	Temperature
	Voltage
	Current
)

var variableNames = map[VariableType]string{
	MassFlow:    "mass_flow",
	VolumeFlow:  "volume_flow",
	Velocity:    "velocity",
	Pressure:    "pressure",
	Temperature: "temperature",
	Voltage:     "voltage",
	Current:     "current",
}

func (v VariableType) String() string {
	if name, ok := variableNames[v]; ok {
		return name
	}
	return "unknown"
}

// ControlMode определяет режим работы управляющего прибора.
type ControlMode int

const (
	// ModePassive — выход отключен или равен нулю.
	ModePassive ControlMode = iota
	// ModeActive — прибор активно регулирует выход к уставке.
	ModeActive
	// ModeMeasure — только измерение, поддерживается не всеми приборами.
	ModeMeasure
)

func (m ControlMode) String() string {
	switch m {
	case ModePassive:
		return "passive"
	case ModeActive:
		return "active"
	case ModeMeasure:
		return "measure"
	}
	return "unknown"
}

// Reading содержит один снимок показаний прибора.
// Прибор заполняет только те величины, которые он измеряет.
type Reading map[VariableType]float64

// ReferenceKind определяет логическую роль эталонного прибора в обвязке.
type ReferenceKind string

const (
	RefMassFlow    ReferenceKind = "mass_flow_reference"
	RefSupply      ReferenceKind = "supply_reference"
	RefTemperature ReferenceKind = "temperature_reference"
)

// SerialSettings содержит параметры последовательного канала прибора.
type SerialSettings struct {
	PortName     string        `json:"port_name"`
	BaudRate     int           `json:"baud_rate"`
	DataBits     int           `json:"data_bits"`
	Parity       string        `json:"parity"` // none / even / odd
	StopBits     int           `json:"stop_bits"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Terminator   byte          `json:"terminator"`
}

// InstrumentSettings описывает один эталонный или управляющий прибор обвязки.
type InstrumentSettings struct {
	ModelLabel string         `json:"model_label"`
	Serial     SerialSettings `json:"serial"`
	// EchoTolerance — абсолютный допуск на расхождение эхо-значения
	// уставки с запрошенным. Подбирается на модель прибора.
	EchoTolerance float64 `json:"echo_tolerance"`
	// MaxSetpoint — документированный предел уставки прибора.
	MaxSetpoint float64 `json:"max_setpoint"`
}

// EquipmentSettings содержит состав обвязки для одного прогона.
type EquipmentSettings struct {
	FlowController InstrumentSettings `json:"flow_controller"`
	PowerSupply    InstrumentSettings `json:"power_supply"`
	Datalogger     InstrumentSettings `json:"datalogger"`
	DutBank        InstrumentSettings `json:"dut_bank"`
}

// DutModelSettings описывает модель испытуемых датчиков: пределы команд
// и ожидаемые диапазоны показаний.
type DutModelSettings struct {
	Label            string  `json:"label"`
	RangeMin         float64 `json:"range_min"`
	RangeMax         float64 `json:"range_max"`
	SupplyVoltage    float64 `json:"supply_voltage"`
	TolerancePercent float64 `json:"tolerance_percent"`
}

// TestProfile содержит параметры калибровочной последовательности.
type TestProfile struct {
	Label     string        `json:"label"`
	Gas       Gas           `json:"gas"`
	Setpoints []float64     `json:"setpoints"`
	Dwell     time.Duration `json:"dwell"`
}

// DutSelection — выбор одного DUT из снимка пользовательского интерфейса.
type DutSelection struct {
	Index        int    `json:"index"` // 1-based, стабилен на время прогона
	Selected     bool   `json:"selected"`
	SerialNumber string `json:"serial_number"` // может быть пустым до обнаружения
}

// RunConfig — снимок конфигурации, передаваемый в Start().
// Ядро не читает глобальных настроек: все, что нужно прогону, находится здесь.
type RunConfig struct {
	Equipment EquipmentSettings `json:"equipment"`
	DutModel  DutModelSettings  `json:"dut_model"`
	Profile   TestProfile       `json:"profile"`
	Duts      []DutSelection    `json:"duts"`
}

// DutResult — итог прогона по одному DUT для отчета.
type DutResult struct {
	Index        int     `json:"index"`
	SerialNumber string  `json:"serial_number"`
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	MaxErrorPct  float64 `json:"max_error_pct"`
}

// RunReport — итоговый отчет о прогоне, публикуемый после завершения.
type RunReport struct {
	RunID      string      `json:"run_id"`
	Profile    string      `json:"profile"`
	DutModel   string      `json:"dut_model"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Aborted    bool        `json:"aborted"`
	Fatal      string      `json:"fatal,omitempty"`
	Duts       []DutResult `json:"duts"`
}

// RunSnapshot — read-only снимок состояния оркестратора для наблюдателей.
type RunSnapshot struct {
	RunID    string `json:"run_id"`
	Phase    string `json:"phase"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}
