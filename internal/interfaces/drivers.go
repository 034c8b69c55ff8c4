package interfaces

import "github.com/iwtcode/calibService/internal/domain/models"

// Device — общий контракт драйвера прибора: владение последовательным
// каналом и жизненный цикл. Каждый драйвер обслуживает ровно одно
// логическое устройство на физической линии.
type Device interface {
	Open() error
	Close() error
	Model() string
}

// Reference определяет контракт эталонного прибора: один опрос возвращает
// снимок только тех величин, которые прибор измеряет.
type Reference interface {
	Read() (models.Reading, error)
}

// Controller определяет контракт управляющего прибора.
type Controller interface {
	// WriteSetpoint задает уставку. Драйвер проверяет величину и диапазон
	// до обращения к каналу и сверяет эхо устройства с запрошенным значением.
	WriteSetpoint(t models.VariableType, value float64) error
	// ReadSetpoint возвращает последнюю подтвержденную уставку. Для приборов
	// без настоящего чтения уставки возвращается кэш последней записи.
	ReadSetpoint(t models.VariableType) (float64, error)
	// SetControlMode переводит прибор между активным и пассивным состояниями.
	SetControlMode(mode models.ControlMode) error
}

// GasSelector определяет выбор калибровочного газа расходомерным прибором.
// Вызывается один раз после Open(), до первых измерений и уставок:
// порядок обеспечивает вызывающая сторона, драйвер его не навязывает.
type GasSelector interface {
	SetGas(gas models.Gas) error
}

// Узкие интерфейсы-способности. Оркестратор и обвязка программируются
// только против них: любой прибор со способностью X взаимозаменяем.

type MassFlowReference interface {
	Device
	Reference
}

type MassFlowController interface {
	Device
	Reference
	Controller
	GasSelector
}

type SupplyController interface {
	Device
	Reference
	Controller
}

type TemperatureReference interface {
	Device
	Reference
}

// DutBank — контракт стендового мультиплексора испытуемых датчиков.
// Мультиплексор — одно логическое устройство; номер канала адресует
// посадочное место DUT внутри него.
type DutBank interface {
	Device
	// Probe опрашивает посадочное место и возвращает серийный номер DUT.
	// Тайм-аут означает пустое место, а не ошибку стенда.
	Probe(channel int) (string, error)
	// ReadChannel возвращает показание DUT на посадочном месте.
	ReadChannel(channel int) (models.Reading, error)
}
