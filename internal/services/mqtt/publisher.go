package mqtt

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"

	"github.com/iwtcode/calibService/internal/interfaces"
	"github.com/iwtcode/calibService/internal/middleware/logging"
)

// Config представляет конфигурацию MQTT-публикатора статуса.
type Config struct {
	Enabled   bool
	Broker    string // адрес брокера, например "tcp://localhost:1883"
	Username  string
	Password  string
	ClientID  string // генерируется, если пуст
	BaseTopic string // базовый топик, например "calib/run"
	QoS       byte
}

// progressMessage — полезная нагрузка события прогресса.
type progressMessage struct {
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// dutMessage — полезная нагрузка события DUT.
type dutMessage struct {
	Index        int       `json:"index"`
	Status       string    `json:"status,omitempty"`
	SerialNumber string    `json:"serial_number,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher зеркалирует события прогона в MQTT-брокер цеховой телеметрии.
// Это обычный наблюдатель: ядро о нем не знает, срыв публикации не влияет
// на прогон.
type Publisher struct {
	config Config
	client mqttLib.Client
	logger *logging.Logger
}

var _ interfaces.TestObserver = (*Publisher)(nil)

// NewPublisher создает публикатор. Подключение выполняется в Start().
func NewPublisher(cfg Config, logger *logging.Logger) *Publisher {
	if cfg.ClientID == "" {
		cfg.ClientID = generateClientID()
	}
	return &Publisher{
		config: cfg,
		logger: logger.WithPrefix("MQTT"),
	}
}

// generateClientID генерирует случайный ID клиента.
func generateClientID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return "calib-service-" + hex.EncodeToString(bytes)
}

// Start подключается к брокеру.
func (p *Publisher) Start() error {
	opts := mqttLib.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	if p.config.Username != "" && p.config.Password != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqttLib.Client, err error) {
		p.logger.Warn("MQTT connection lost", "error", err)
	})

	p.client = mqttLib.NewClient(opts)
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("не удалось подключиться к MQTT-брокеру: %w", token.Error())
	}

	p.logger.Info("MQTT publisher connected", "broker", p.config.Broker)
	return nil
}

// Stop отключается от брокера.
func (p *Publisher) Stop() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(1000)
		p.logger.Info("MQTT publisher disconnected")
	}
}

func (p *Publisher) OnProgress(percent int, message string) {
	p.publish(p.config.BaseTopic+"/progress", progressMessage{
		Percent:   percent,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func (p *Publisher) OnDutStatusChanged(dutIndex int, status string) {
	p.publish(fmt.Sprintf("%s/dut/%d/status", p.config.BaseTopic, dutIndex), dutMessage{
		Index:     dutIndex,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func (p *Publisher) OnDutSerialNumberChanged(dutIndex int, serialNumber string) {
	p.publish(fmt.Sprintf("%s/dut/%d/serial", p.config.BaseTopic, dutIndex), dutMessage{
		Index:        dutIndex,
		SerialNumber: serialNumber,
		Timestamp:    time.Now(),
	})
}

func (p *Publisher) OnFinished() {
	p.publish(p.config.BaseTopic+"/finished", progressMessage{
		Percent:   100,
		Message:   "finished",
		Timestamp: time.Now(),
	})
}

func (p *Publisher) publish(topic string, payload interface{}) {
	if p.client == nil || !p.client.IsConnected() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal MQTT payload", "topic", topic, "error", err)
		return
	}

	token := p.client.Publish(topic, p.config.QoS, false, data)
	token.Wait()
	if token.Error() != nil {
		p.logger.Warn("Failed to publish MQTT message", "topic", topic, "error", token.Error())
	}
}
