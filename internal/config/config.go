// v2
// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Storage driver names accepted by STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds the runtime configuration of the backend, loaded from the
// environment so deployments stay code-free.
type Config struct {
	HTTPBind string // address:port for the HTTP server

	MQTTEnabled  bool
	MQTTBroker   string // e.g. tcp://mosquitto:1883
	MQTTClientID string
	MQTTTopic    string // topic filter with wildcards, e.g. parking/sensor/#
	MQTTUsername string
	MQTTPassword string

	KafkaBrokers []string // empty disables the gateway relay consumer
	KafkaTopic   string
	KafkaGroupID string

	StorageDriver string // memory | postgres
	PostgresURL   string

	SeedPath string // optional JSON seed document; "" disables seeding
	LogDir   string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPBind: getEnv("HTTP_BIND", ":8080"),

		MQTTEnabled:  getEnvBool("MQTT_ENABLED", true),
		MQTTBroker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "parking-backend"),
		MQTTTopic:    getEnv("MQTT_TOPIC", "parking/sensor/#"),
		MQTTUsername: os.Getenv("MQTT_USERNAME"),
		MQTTPassword: os.Getenv("MQTT_PASSWORD"),

		KafkaBrokers: splitAndTrim(os.Getenv("KAFKA_BROKERS"), ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "parking.gateway.events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "parking-backend"),

		StorageDriver: getEnv("STORAGE_DRIVER", DriverMemory),
		PostgresURL:   os.Getenv("POSTGRES_URL"),

		SeedPath: os.Getenv("SEED_PATH"),
		LogDir:   getEnv("LOG_DIR", "./logs"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is internally consistent before use.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory, DriverPostgres:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.StorageDriver)
	}
	if c.StorageDriver == DriverPostgres && strings.TrimSpace(c.PostgresURL) == "" {
		return errors.New("POSTGRES_URL is required with the postgres driver")
	}
	if c.MQTTEnabled {
		if strings.TrimSpace(c.MQTTBroker) == "" {
			return errors.New("MQTT_BROKER is required when MQTT is enabled")
		}
		if strings.TrimSpace(c.MQTTTopic) == "" {
			return errors.New("MQTT_TOPIC is required when MQTT is enabled")
		}
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		return errors.New("KAFKA_TOPIC is required when Kafka brokers are set")
	}
	return nil
}

// KafkaEnabled reports whether the gateway relay consumer should run.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitAndTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
