package usecases

import (
	"fmt"

	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
)

// RunConfigSource выдает конфигурацию прогона в момент запуска.
// Источником служит конфигурация приложения, но usecase от нее не зависит.
type RunConfigSource func() (models.RunConfig, error)

type Usecase struct {
	testSvc interfaces.TestService
	runCfg  RunConfigSource
}

func NewUsecase(testSvc interfaces.TestService, runCfg RunConfigSource) interfaces.Usecases {
	return &Usecase{
		testSvc: testSvc,
		runCfg:  runCfg,
	}
}

// StartRun собирает конфигурацию и запускает калибровочный прогон.
func (u *Usecase) StartRun() error {
	cfg, err := u.runCfg()
	if err != nil {
		return fmt.Errorf("не удалось собрать конфигурацию прогона: %w", err)
	}
	return u.testSvc.Start(cfg)
}

// StopRun запрашивает остановку активного прогона.
func (u *Usecase) StopRun() {
	u.testSvc.Stop()
}

// IsRunActive сообщает, идет ли прогон.
func (u *Usecase) IsRunActive() bool {
	return u.testSvc.IsBusy()
}

// RunStatus возвращает снимок состояния прогона.
func (u *Usecase) RunStatus() models.RunSnapshot {
	return u.testSvc.Snapshot()
}
