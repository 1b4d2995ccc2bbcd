// v2
// internal/ingest/mqtt.go
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// QoS 0: the broker already gives at-least-once per topic for our purposes
// and a lost reading is corrected by the sensor's next report.
const mqttQoS = 0

// MQTTConfig groups the broker settings for the sensor topic subscription.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// StartMQTT connects to the broker and subscribes the coordinator to the
// configured topic filter. The returned client is disconnected by the caller
// on shutdown.
func StartMQTT(cfg MQTTConfig, coord *Coordinator, logger *slog.Logger) (mqtt.Client, error) {
	log := logger.With(slog.String("component", "mqtt"))

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("connection lost", slog.Any("error", err))
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Info("connected", slog.String("broker", cfg.Broker))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		coord.HandleMessage(context.Background(), "mqtt", msg.Topic(), msg.Payload())
	}
	if token := client.Subscribe(cfg.Topic, mqttQoS, handler); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("mqtt subscribe %s: %w", cfg.Topic, token.Error())
	}
	log.Info("subscribed", slog.String("topic", cfg.Topic))
	return client, nil
}
