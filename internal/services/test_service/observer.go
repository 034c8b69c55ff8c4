package test_service

import (
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
)

// NopObserver — наблюдатель, игнорирующий все события.
type NopObserver struct{}

var _ interfaces.TestObserver = NopObserver{}

func (NopObserver) OnProgress(int, string)               {}
func (NopObserver) OnDutStatusChanged(int, string)       {}
func (NopObserver) OnDutSerialNumberChanged(int, string) {}
func (NopObserver) OnFinished()                          {}

// MultiObserver раздает события нескольким наблюдателям по порядку.
// Ядро остается с одним наблюдателем; как и куда доставлять — решает
// собирающая сторона.
type MultiObserver struct {
	observers []interfaces.TestObserver
}

var _ interfaces.TestObserver = (*MultiObserver)(nil)

func NewMultiObserver(observers ...interfaces.TestObserver) *MultiObserver {
	return &MultiObserver{observers: observers}
}

func (m *MultiObserver) OnProgress(percent int, message string) {
	for _, o := range m.observers {
		o.OnProgress(percent, message)
	}
}

func (m *MultiObserver) OnDutStatusChanged(dutIndex int, status string) {
	for _, o := range m.observers {
		o.OnDutStatusChanged(dutIndex, status)
	}
}

func (m *MultiObserver) OnDutSerialNumberChanged(dutIndex int, serialNumber string) {
	for _, o := range m.observers {
		o.OnDutSerialNumberChanged(dutIndex, serialNumber)
	}
}

func (m *MultiObserver) OnFinished() {
	for _, o := range m.observers {
		o.OnFinished()
	}
}

// LogObserver пишет события прогона в журнал приложения.
type LogObserver struct {
	logger *logging.Logger
}

var _ interfaces.TestObserver = (*LogObserver)(nil)

func NewLogObserver(logger *logging.Logger) *LogObserver {
	return &LogObserver{logger: logger.WithPrefix("RUN")}
}

func (l *LogObserver) OnProgress(percent int, message string) {
	l.logger.Info("Progress", "percent", percent, "message", message)
}

func (l *LogObserver) OnDutStatusChanged(dutIndex int, status string) {
	l.logger.Info("DUT status changed", "dut", dutIndex, "status", status)
}

func (l *LogObserver) OnDutSerialNumberChanged(dutIndex int, serialNumber string) {
	l.logger.Info("DUT serial number read", "dut", dutIndex, "serial", serialNumber)
}

func (l *LogObserver) OnFinished() {
	l.logger.Info("Run finished notification")
}
