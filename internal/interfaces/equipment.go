package interfaces

import "github.com/iwtcode/calibService/internal/domain/models"

// Equipment — агрегат приборов, выбранных для одного прогона. Владеет
// драйверами монопольно: пока прогон активен, никто другой не вправе
// посылать команды его приборам.
type Equipment interface {
	// Open открывает каналы всех приборов и останавливается на первой
	// ошибке. Уже открытые приборы остаются открытыми: вызывающая сторона
	// обязана вызвать Close() даже после неудачного Open().
	Open() error
	// Close закрывает все приборы, собирая ошибки вместо остановки на
	// первой. Безопасен на частично открытом агрегате.
	Close() error
	// Read опрашивает все эталонные приборы и возвращает цельный снимок.
	// Снимок атомарен по циклу: ошибка любого прибора — ошибка всего
	// опроса, частичные снимки наружу не выдаются.
	Read() (map[models.ReferenceKind]models.Reading, error)

	// FlowController возвращает управляющий расходомер обвязки.
	FlowController() MassFlowController
	// Supply возвращает источник питания DUT.
	Supply() SupplyController
	// Duts возвращает стендовый мультиплексор испытуемых датчиков.
	Duts() DutBank
}

// EquipmentFactory собирает агрегат из настроек обвязки. Вынесен в
// интерфейс, чтобы оркестратор можно было тестировать на подменной обвязке.
type EquipmentFactory interface {
	Build(cfg models.EquipmentSettings) (Equipment, error)
}
