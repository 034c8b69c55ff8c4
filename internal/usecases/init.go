package usecases

import "github.com/iwtcode/calibService/internal/interfaces"

// UseCases - агрегатор всех use case интерфейсов
type UseCases struct {
	interfaces.Usecases
}

// NewUsecases - конструктор для UseCases
func NewUsecases(
	testSvc interfaces.TestService,
	runCfg RunConfigSource,
) interfaces.Usecases {
	return NewUsecase(testSvc, runCfg)
}
