package interfaces

// TestObserver получает события прогона. Вызовы приходят из фонового
// контекста оркестратора: наблюдатель сам решает, куда их маршалить
// (UI-поток, канал, брокер), ядро не предполагает доставку в свой поток.
type TestObserver interface {
	// OnProgress сообщает прогресс 0-100 и человекочитаемое сообщение.
	// Процент не убывает в пределах одного прогона.
	OnProgress(percent int, message string)
	// OnDutStatusChanged сообщает смену статуса одного DUT.
	OnDutStatusChanged(dutIndex int, status string)
	// OnDutSerialNumberChanged сообщает серийный номер, прочитанный с DUT.
	OnDutSerialNumberChanged(dutIndex int, serialNumber string)
	// OnFinished вызывается ровно один раз на прогон: успех, частичный
	// провал и прерывание приходят через него одинаково.
	OnFinished()
}
