package app

import (
	"context"

	"github.com/iwtcode/calibService/internal/config"
	"github.com/iwtcode/calibService/internal/equipment"
	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
	"github.com/iwtcode/calibService/internal/services/kafka"
	"github.com/iwtcode/calibService/internal/services/mqtt"
	"github.com/iwtcode/calibService/internal/services/test_service"
	"github.com/iwtcode/calibService/internal/usecases"

	"go.uber.org/fx"
)

// New создает новый экземпляр fx.App
func New() *fx.App {
	return fx.New(
		ConfigModule,
		LoggingModule,
		EquipmentModule,
		ProducerModule,
		PublisherModule,
		ServiceModule,
		UsecaseModule,
		// Invoke-функции для хуков жизненного цикла
		fx.Invoke(InvokeMqttPublisher),
		fx.Invoke(InvokeAutoStart),
		fx.Invoke(InvokeShutdown),
	)
}

// --- Модули FX ---

var ConfigModule = fx.Module("config_module",
	fx.Provide(config.LoadConfiguration),
)

func ProvideLogger(cfg *config.AppConfig) *logging.Logger {
	loggerCfg := &logging.Config{
		Enabled:    cfg.Logging.Enable,
		Level:      cfg.Logging.Level,
		LogsDir:    cfg.Logging.LogsDir,
		SavingDays: uint(cfg.Logging.SavingDays),
	}
	return logging.NewLogger(loggerCfg, "CalibServiceApp")
}

var LoggingModule = fx.Module("logging_module",
	fx.Provide(ProvideLogger),
)

func ProvideEquipmentFactory(logger *logging.Logger) interfaces.EquipmentFactory {
	return equipment.NewFactory(logger)
}

var EquipmentModule = fx.Module("equipment_module",
	fx.Provide(ProvideEquipmentFactory),
)

var ProducerModule = fx.Module("producer_module",
	fx.Provide(kafka.NewReportProducer),
)

func ProvideMqttPublisher(cfg *config.AppConfig, logger *logging.Logger) *mqtt.Publisher {
	return mqtt.NewPublisher(mqtt.Config{
		Enabled:   cfg.Mqtt.Enabled,
		Broker:    cfg.Mqtt.Broker,
		Username:  cfg.Mqtt.Username,
		Password:  cfg.Mqtt.Password,
		BaseTopic: cfg.Mqtt.BaseTopic,
		QoS:       byte(cfg.Mqtt.QoS),
	}, logger)
}

var PublisherModule = fx.Module("publisher_module",
	fx.Provide(ProvideMqttPublisher),
)

// ProvideObserver собирает наблюдателя прогона: журнал всегда, MQTT — если
// подключен. Отключенный публикатор молча игнорирует события.
func ProvideObserver(publisher *mqtt.Publisher, logger *logging.Logger) interfaces.TestObserver {
	return test_service.NewMultiObserver(
		test_service.NewLogObserver(logger),
		publisher,
	)
}

func ProvideTestService(
	factory interfaces.EquipmentFactory,
	observer interfaces.TestObserver,
	producer interfaces.ReportProducer,
	logger *logging.Logger,
) interfaces.TestService {
	return test_service.NewTestManager(factory, observer, producer, logger)
}

var ServiceModule = fx.Module("service_module",
	fx.Provide(
		ProvideObserver,
		ProvideTestService,
	),
)

func ProvideRunConfigSource(cfg *config.AppConfig) usecases.RunConfigSource {
	return cfg.BuildRunConfig
}

var UsecaseModule = fx.Module("usecases_module",
	fx.Provide(
		ProvideRunConfigSource,
		usecases.NewUsecases,
	),
)

// InvokeMqttPublisher подключает MQTT-публикатор при старте приложения.
// Недоступный брокер не мешает прогонам: события просто не публикуются.
func InvokeMqttPublisher(lc fx.Lifecycle, cfg *config.AppConfig, publisher *mqtt.Publisher, logger *logging.Logger) {
	if !cfg.Mqtt.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := publisher.Start(); err != nil {
				logger.Warn("MQTT publisher failed to start, run events will not be mirrored", "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			publisher.Stop()
			return nil
		},
	})
}

// InvokeAutoStart запускает прогон сразу после старта приложения, если это
// включено в конфигурации. Ошибка конфигурации прогона останавливает запуск.
func InvokeAutoStart(lc fx.Lifecycle, cfg *config.AppConfig, uc interfaces.Usecases, logger *logging.Logger) {
	if !cfg.AutoStart {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Auto-starting calibration run",
				"profile", cfg.Run.ProfileLabel, "dutModel", cfg.Run.DutModelLabel)
			if err := uc.StartRun(); err != nil {
				logger.Error("Failed to auto-start run", "error", err)
				return err
			}
			return nil
		},
	})
}

// InvokeShutdown останавливает активный прогон и закрывает экспортеры при
// завершении приложения.
func InvokeShutdown(lc fx.Lifecycle, testSvc interfaces.TestService, producer interfaces.ReportProducer, logger *logging.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if testSvc.IsBusy() {
				logger.Info("Stopping active run before shutdown")
				testSvc.Stop()
			}
			if producer != nil {
				if err := producer.Close(); err != nil {
					logger.Warn("Failed to close report producer", "error", err)
				}
			}
			logger.Close()
			return nil
		},
	})
}
