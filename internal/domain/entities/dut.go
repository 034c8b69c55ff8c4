package entities

// Статусы DUT в течение прогона.
const (
	DutStatusIdle      = "idle"      // прогон не начат
	DutStatusInit      = "init"      // прогон инициализируется
	DutStatusFound     = "found"     // DUT обнаружен на стенде
	DutStatusNotFound  = "not_found" // DUT не ответил при обнаружении
	DutStatusPass      = "pass"      // калибровка в допуске
	DutStatusFail      = "fail"      // калибровка вне допуска или ошибка обмена
	DutStatusPortError = "port_error" // прогон сорван ошибкой оборудования
)

// Dut представляет один испытуемый датчик в партии. Создается при старте
// прогона из снимка выбора и не переживает прогон: новый прогон — новый набор.
type Dut struct {
	Index        int    `json:"index"` // 1-based, стабилен на время прогона
	SerialNumber string `json:"serial_number"`
	Selected     bool   `json:"selected"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	// MaxErrorPct — наихудшая относительная ошибка DUT за прогон, в процентах.
	MaxErrorPct float64 `json:"max_error_pct"`
}
