package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	SAC      SACConfig      `yaml:"sac"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                         string `yaml:"host"`
	Port                         int    `yaml:"port"`
	ConversationHandledTopicName string `yaml:"conversation_handled_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SACConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	WorkerHTTPAddr     string `yaml:"worker_http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	CarrierBaseURL string `yaml:"carrier_base_url"`
	CarrierAPIKey  string `yaml:"carrier_api_key"`
	CarrierMode    string `yaml:"carrier_mode"` // "intelipost" | "fake"

	MessagingBaseURL string `yaml:"messaging_base_url"`
	MessagingToken   string `yaml:"messaging_token"`
	MessagingUserID  string `yaml:"messaging_user_id"`
	BotBaseURL       string `yaml:"bot_base_url"`
	BotToken         string `yaml:"bot_token"`

	TrackingCacheTTLSeconds   int `yaml:"tracking_cache_ttl_seconds"`
	CarrierRateLimitPerMinute int `yaml:"carrier_rate_limit_per_minute"`

	Timezone      string          `yaml:"timezone"`       // default America/Sao_Paulo
	BusinessOpen  string          `yaml:"business_open"`  // "08:30"
	BusinessClose string          `yaml:"business_close"` // "17:30"
	Holidays      []HolidayWindow `yaml:"holidays"`
}

// HolidayWindow is a closed date range (inclusive, "2006-01-02") during which
// the exchange/support flows answer with Message instead of queueing.
type HolidayWindow struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Message string `yaml:"message"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
