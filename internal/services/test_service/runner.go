package test_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iwtcode/calibService/internal/domain/entities"
	"github.com/iwtcode/calibService/internal/domain/models"
	"github.com/iwtcode/calibService/internal/interfaces"
	deverr "github.com/iwtcode/calibService/pkg/errors"
)

// dwellSlice — шаг, которым нарезается выдержка на уставке, чтобы запрос
// остановки не ждал всю выдержку целиком.
const dwellSlice = 100 * time.Millisecond

// run — тело прогона, выполняется на фоновой горутине. Любой выход
// проходит через complete(): закрытие обвязки и единственный OnFinished.
func (m *TestManager) run(cfg models.RunConfig, eq interfaces.Equipment) {
	// --- Initializing ---
	m.reportProgress(2, "Открытие приборов")
	if err := eq.Open(); err != nil {
		// Срыв открытия фатален для всего прогона и сообщается один раз,
		// а не по числу DUT.
		m.logger.Error("Equipment open failed", "runID", m.runID, "error", err)
		m.markActiveDuts(entities.DutStatusPortError, "оборудование недоступно")
		m.complete(cfg, eq, err)
		return
	}
	m.forEachSelected(func(d *entities.Dut) {
		m.setDutStatus(d, entities.DutStatusInit, "")
	})
	m.reportProgress(5, "Приборы открыты")

	if !m.enterRunning() {
		m.complete(cfg, eq, nil)
		return
	}

	// --- Running: подготовка обвязки ---
	flow := eq.FlowController()
	supply := eq.Supply()

	if err := flow.SetGas(cfg.Profile.Gas); err != nil {
		// Неподтвержденный газ означает чужую кривую пересчета: ни одного
		// измерения и ни одной уставки после этого не выполняется.
		m.fatalEquipment(err, "выбор газа не подтвержден прибором")
		m.complete(cfg, eq, err)
		return
	}
	if err := supply.WriteSetpoint(models.Voltage, cfg.DutModel.SupplyVoltage); err != nil {
		m.fatalEquipment(err, "не удалось задать питание DUT")
		m.complete(cfg, eq, err)
		return
	}
	if err := supply.SetControlMode(models.ModeActive); err != nil {
		m.fatalEquipment(err, "не удалось включить питание DUT")
		m.complete(cfg, eq, err)
		return
	}
	if err := flow.SetControlMode(models.ModeActive); err != nil {
		m.fatalEquipment(err, "не удалось включить регулирование расхода")
		m.complete(cfg, eq, err)
		return
	}
	m.reportProgress(10, fmt.Sprintf("Обвязка готова, газ %s", cfg.Profile.Gas))

	// --- Running: обнаружение DUT ---
	if aborted := m.discoverDuts(eq.Duts()); aborted {
		m.complete(cfg, eq, nil)
		return
	}
	m.reportProgress(20, "Обнаружение DUT завершено")

	// --- Running: цикл уставок ---
	for i, sp := range cfg.Profile.Setpoints {
		if m.isAborted() {
			m.complete(cfg, eq, nil)
			return
		}

		if err := flow.WriteSetpoint(models.MassFlow, sp); err != nil {
			m.fatalEquipment(err, "не удалось задать уставку расхода")
			m.complete(cfg, eq, err)
			return
		}
		m.reportProgress(m.setpointProgress(i, len(cfg.Profile.Setpoints), 0),
			fmt.Sprintf("Уставка %s, выдержка", models.MassFlow))

		if aborted := m.dwell(cfg.Profile.Dwell); aborted {
			m.complete(cfg, eq, nil)
			return
		}

		snapshot, err := eq.Read()
		if err != nil {
			m.fatalEquipment(err, "срыв опроса эталонов")
			m.complete(cfg, eq, err)
			return
		}
		refFlow := snapshot[models.RefMassFlow][models.MassFlow]

		if aborted := m.compareDuts(eq.Duts(), cfg.DutModel, refFlow); aborted {
			m.complete(cfg, eq, nil)
			return
		}
		m.reportProgress(m.setpointProgress(i, len(cfg.Profile.Setpoints), 1),
			fmt.Sprintf("Точка %d из %d обработана", i+1, len(cfg.Profile.Setpoints)))
	}

	// Все точки пройдены: кто не провалился — тот прошел.
	m.forEachSelected(func(d *entities.Dut) {
		if d.Status == entities.DutStatusFound {
			m.setDutStatus(d, entities.DutStatusPass, "в допуске")
		}
	})

	m.complete(cfg, eq, nil)
}

// discoverDuts опрашивает посадочные места выбранных DUT. Тайм-аут — пустое
// место (NotFound), прочие ошибки проваливают только этот DUT.
func (m *TestManager) discoverDuts(bank interfaces.DutBank) (aborted bool) {
	duts := m.selectedDuts()
	for _, d := range duts {
		if m.isAborted() {
			return true
		}

		serial, err := bank.Probe(d.Index)
		switch {
		case err == nil:
			m.setDutSerial(d, serial)
			m.setDutStatus(d, entities.DutStatusFound, "")
		case errors.Is(err, deverr.ErrTimeout):
			m.setDutStatus(d, entities.DutStatusNotFound, "не отвечает")
		default:
			m.logger.Warn("DUT probe failed", "runID", m.runID, "dut", d.Index, "error", err)
			m.setDutStatus(d, entities.DutStatusFail, err.Error())
		}
	}
	return false
}

// compareDuts читает показания обнаруженных DUT и сверяет с эталоном.
// Провал одного DUT локален: остальные продолжают прогон.
func (m *TestManager) compareDuts(bank interfaces.DutBank, model models.DutModelSettings, refFlow float64) (aborted bool) {
	for _, d := range m.selectedDuts() {
		if d.Status != entities.DutStatusFound {
			continue
		}
		if m.isAborted() {
			return true
		}

		reading, err := bank.ReadChannel(d.Index)
		if err != nil {
			m.logger.Warn("DUT read failed", "runID", m.runID, "dut", d.Index, "error", err)
			m.setDutStatus(d, entities.DutStatusFail, fmt.Sprintf("ошибка обмена: %v", err))
			continue
		}

		errPct := errorPercent(reading[models.MassFlow], refFlow, model.RangeMax)
		m.updateDutError(d, errPct)
		if errPct > model.TolerancePercent {
			m.setDutStatus(d, entities.DutStatusFail,
				fmt.Sprintf("ошибка %.2f%% сверх допуска %.2f%%", errPct, model.TolerancePercent))
		}
	}
	return false
}

// errorPercent считает относительную ошибку DUT. Относительно эталона, а
// около нуля эталона — относительно полной шкалы, чтобы не делить на ноль.
func errorPercent(measured, reference, rangeMax float64) float64 {
	diff := math.Abs(measured - reference)
	if reference != 0 {
		return diff / math.Abs(reference) * 100
	}
	if rangeMax <= 0 {
		return diff * 100
	}
	return diff / rangeMax * 100
}

// dwell выдерживает паузу на уставке, наблюдая запрос остановки.
func (m *TestManager) dwell(d time.Duration) (aborted bool) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if m.isAborted() {
			return true
		}
		slice := time.Until(deadline)
		if slice > dwellSlice {
			slice = dwellSlice
		}
		time.Sleep(slice)
	}
	return m.isAborted()
}

// complete — единственный выход из прогона: перевод обвязки в пассив,
// закрытие, итоговые статусы, отчет и ровно один OnFinished.
func (m *TestManager) complete(cfg models.RunConfig, eq interfaces.Equipment, fatal error) {
	m.mu.Lock()
	m.phase = PhaseCompleting
	aborted := m.aborted
	m.mu.Unlock()

	// Перевод в пассив и закрытие — всегда, как бы прогон ни закончился.
	// Ошибки здесь собираются в лог и не перекрывают исход прогона.
	if fatal == nil {
		if err := eq.FlowController().SetControlMode(models.ModePassive); err != nil {
			m.logger.Warn("Failed to set flow controller passive", "runID", m.runID, "error", err)
		}
		if err := eq.Supply().SetControlMode(models.ModePassive); err != nil {
			m.logger.Warn("Failed to set supply passive", "runID", m.runID, "error", err)
		}
	}
	if err := eq.Close(); err != nil {
		m.logger.Warn("Equipment close finished with errors", "runID", m.runID, "error", err)
	}

	switch {
	case fatal != nil:
		m.reportProgress(100, fmt.Sprintf("Прогон сорван: %v", fatal))
	case aborted:
		m.reportProgress(100, "Прогон прерван оператором")
	default:
		m.reportProgress(100, "Прогон завершен")
	}

	m.publishReport(cfg, aborted, fatal)

	m.logger.Info("Run finished", "runID", m.runID, "aborted", aborted, "fatal", fatal != nil)
	m.observer.OnFinished()

	m.mu.Lock()
	m.phase = PhaseIdle
	m.mu.Unlock()
}

// publishReport отправляет итоговый отчет во внешний брокер, если продюсер
// сконфигурирован. Срыв экспорта не меняет исход прогона.
func (m *TestManager) publishReport(cfg models.RunConfig, aborted bool, fatal error) {
	if m.producer == nil {
		return
	}

	m.mu.Lock()
	report := models.RunReport{
		RunID:      m.runID,
		Profile:    cfg.Profile.Label,
		DutModel:   cfg.DutModel.Label,
		StartedAt:  m.startedAt,
		FinishedAt: time.Now(),
		Aborted:    aborted,
	}
	if fatal != nil {
		report.Fatal = fatal.Error()
	}
	for _, d := range m.duts {
		if !d.Selected {
			continue
		}
		report.Duts = append(report.Duts, models.DutResult{
			Index:        d.Index,
			SerialNumber: d.SerialNumber,
			Status:       d.Status,
			Message:      d.Message,
			MaxErrorPct:  d.MaxErrorPct,
		})
	}
	runID := m.runID
	m.mu.Unlock()

	payload, err := json.Marshal(report)
	if err != nil {
		m.logger.Error("Failed to serialize run report", "runID", runID, "error", err)
		return
	}
	if err := m.producer.Produce(context.Background(), []byte(runID), payload); err != nil {
		m.logger.Error("Failed to export run report", "runID", runID, "error", err)
	}
}

// --- вспомогательные переходы и уведомления ---

// enterRunning переводит автомат в Running, если остановка еще не запрошена.
func (m *TestManager) enterRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aborted {
		return false
	}
	m.phase = PhaseRunning
	return true
}

func (m *TestManager) isAborted() bool {
	select {
	case <-m.abort:
		return true
	default:
		return false
	}
}

// fatalEquipment помечает еще активные DUT сорванными и логирует причину
// один раз.
func (m *TestManager) fatalEquipment(err error, msg string) {
	m.logger.Error("Run-fatal equipment error", "runID", m.runID, "error", err)
	m.markActiveDuts(entities.DutStatusPortError, msg)
}

// markActiveDuts переводит все выбранные DUT без итогового статуса в status.
func (m *TestManager) markActiveDuts(status, msg string) {
	m.forEachSelected(func(d *entities.Dut) {
		switch d.Status {
		case entities.DutStatusPass, entities.DutStatusFail, entities.DutStatusNotFound:
			return
		}
		m.setDutStatus(d, status, msg)
	})
}

func (m *TestManager) forEachSelected(f func(d *entities.Dut)) {
	for _, d := range m.selectedDuts() {
		f(d)
	}
}

func (m *TestManager) selectedDuts() []*entities.Dut {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entities.Dut, 0, len(m.duts))
	for _, d := range m.duts {
		if d.Selected {
			out = append(out, d)
		}
	}
	return out
}

// setDutStatus меняет статус DUT и уведомляет наблюдателя вне мьютекса.
func (m *TestManager) setDutStatus(d *entities.Dut, status, msg string) {
	m.mu.Lock()
	if d.Status == status {
		m.mu.Unlock()
		return
	}
	d.Status = status
	d.Message = msg
	index := d.Index
	m.mu.Unlock()

	m.observer.OnDutStatusChanged(index, status)
}

func (m *TestManager) setDutSerial(d *entities.Dut, serial string) {
	m.mu.Lock()
	if d.SerialNumber == serial {
		m.mu.Unlock()
		return
	}
	d.SerialNumber = serial
	index := d.Index
	m.mu.Unlock()

	m.observer.OnDutSerialNumberChanged(index, serial)
}

func (m *TestManager) updateDutError(d *entities.Dut, errPct float64) {
	m.mu.Lock()
	if errPct > d.MaxErrorPct {
		d.MaxErrorPct = errPct
	}
	m.mu.Unlock()
}

// reportProgress поднимает прогресс и уведомляет наблюдателя. Процент в
// пределах прогона не убывает: попытка отката зажимается текущим значением.
func (m *TestManager) reportProgress(percent int, message string) {
	m.mu.Lock()
	if percent < m.progress {
		percent = m.progress
	}
	if percent > 100 {
		percent = 100
	}
	m.progress = percent
	m.message = message
	m.mu.Unlock()

	m.observer.OnProgress(percent, message)
}

// setpointProgress распределяет полосу 20..90 по точкам профиля.
// half: 0 — уставка задана, 1 — точка обработана.
func (m *TestManager) setpointProgress(i, total, half int) int {
	const lo, hi = 20, 90
	steps := total * 2
	done := i*2 + half + 1
	return lo + (hi-lo)*done/steps
}
