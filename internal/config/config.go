package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Courier/internal/forwarder"
)

// Типы store.
const (
	StoreTypeMemory   = "memory"
	StoreTypeRabbitMQ = "rabbitmq"
	StoreTypePostgres = "postgres"
	StoreTypeRedis    = "redis"
)

// Типы sequence.
const (
	SequenceTypeLog   = "log"
	SequenceTypeStore = "store"
)

// Config — конфигурация хоста Courier.
type Config struct {
	Host       HostConfig        `yaml:"host"`
	Stores     []StoreConfig     `yaml:"stores"`
	Endpoints  []EndpointConfig  `yaml:"endpoints"`
	Sequences  []SequenceConfig  `yaml:"sequences"`
	Processors []ProcessorConfig `yaml:"processors"`
}

// HostConfig — настройки самого хоста.
type HostConfig struct {
	APIAddr         string        `yaml:"api_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig — определение одного message store.
type StoreConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // memory, rabbitmq, postgres, redis

	// Queue — имя очереди RabbitMQ. По умолчанию имя store.
	Queue string `yaml:"queue,omitempty"`

	// Stream и Group — имя Redis stream и consumer group.
	// По умолчанию имя store и "courier".
	Stream string `yaml:"stream,omitempty"`
	Group  string `yaml:"group,omitempty"`
}

// EndpointConfig — определение endpoint'а доставки.
type EndpointConfig struct {
	Name    string        `yaml:"name"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// BreakerThreshold — число последовательных ошибок до размыкания
	// circuit breaker'а. 0 выключает breaker.
	BreakerThreshold uint32 `yaml:"breaker_threshold,omitempty"`
}

// SequenceConfig — определение sequence.
type SequenceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // log, store

	// Store — имя store для type: store (dead letter).
	Store string `yaml:"store,omitempty"`

	// Level — уровень логирования для type: log (default: info).
	Level string `yaml:"level,omitempty"`
}

// ProcessorConfig — определение message processor'а.
type ProcessorConfig struct {
	Name  string `yaml:"name"`
	Store string `yaml:"store"`

	// Active — начальный статус. Отсутствие поля означает активный.
	Active *bool `yaml:"active,omitempty"`

	// Parameters — параметры форвардера в том виде, в каком их
	// разбирает forwarder.ParseParams.
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// IsActive сообщает начальный статус процессора.
func (p *ProcessorConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}

// ForwarderParams разбирает параметры процессора.
func (p *ProcessorConfig) ForwarderParams() (forwarder.Params, error) {
	return forwarder.ParseParams(p.Parameters)
}

// Default возвращает конфигурацию по умолчанию: один memory store,
// без endpoint'ов и процессоров.
func Default() *Config {
	return &Config{
		Host: HostConfig{
			APIAddr:         ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Stores: []StoreConfig{
			{Name: "default", Type: StoreTypeMemory},
		},
	}
}

// Load загружает конфигурацию из YAML-файла.
// Пустой путь и отсутствующий файл дают конфигурацию по умолчанию.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	cfg.Stores = nil // stores из файла замещают дефолтный
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// normalize заполняет производные значения по умолчанию.
func (c *Config) normalize() {
	if c.Host.APIAddr == "" {
		c.Host.APIAddr = ":8080"
	}
	if c.Host.ShutdownTimeout <= 0 {
		c.Host.ShutdownTimeout = 10 * time.Second
	}
	for i := range c.Stores {
		st := &c.Stores[i]
		if st.Queue == "" {
			st.Queue = st.Name
		}
		if st.Stream == "" {
			st.Stream = st.Name
		}
		if st.Group == "" {
			st.Group = "courier"
		}
	}
	for i := range c.Sequences {
		if c.Sequences[i].Level == "" {
			c.Sequences[i].Level = "info"
		}
	}
}

// Validate проверяет конфигурацию.
func (c *Config) Validate() error {
	storeNames := make(map[string]bool, len(c.Stores))
	for i, st := range c.Stores {
		if st.Name == "" {
			return fmt.Errorf("stores[%d].name cannot be empty", i)
		}
		if storeNames[st.Name] {
			return fmt.Errorf("duplicate store name %q", st.Name)
		}
		storeNames[st.Name] = true

		switch st.Type {
		case StoreTypeMemory, StoreTypeRabbitMQ, StoreTypePostgres, StoreTypeRedis:
		default:
			return fmt.Errorf("stores[%d].type must be one of: memory, rabbitmq, postgres, redis", i)
		}
	}

	endpointNames := make(map[string]bool, len(c.Endpoints))
	for i, ep := range c.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoints[%d].name cannot be empty", i)
		}
		if endpointNames[ep.Name] {
			return fmt.Errorf("duplicate endpoint name %q", ep.Name)
		}
		endpointNames[ep.Name] = true

		if ep.URL == "" {
			return fmt.Errorf("endpoints[%d].url cannot be empty", i)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	sequenceNames := make(map[string]bool, len(c.Sequences))
	for i, seq := range c.Sequences {
		if seq.Name == "" {
			return fmt.Errorf("sequences[%d].name cannot be empty", i)
		}
		if sequenceNames[seq.Name] {
			return fmt.Errorf("duplicate sequence name %q", seq.Name)
		}
		sequenceNames[seq.Name] = true

		switch seq.Type {
		case SequenceTypeLog:
			if !validLevels[seq.Level] {
				return fmt.Errorf("sequences[%d].level must be one of: debug, info, warn, error", i)
			}
		case SequenceTypeStore:
			if !storeNames[seq.Store] {
				return fmt.Errorf("sequences[%d].store references unknown store %q", i, seq.Store)
			}
		default:
			return fmt.Errorf("sequences[%d].type must be one of: log, store", i)
		}
	}

	processorNames := make(map[string]bool, len(c.Processors))
	for i, p := range c.Processors {
		if p.Name == "" {
			return fmt.Errorf("processors[%d].name cannot be empty", i)
		}
		if processorNames[p.Name] {
			return fmt.Errorf("duplicate processor name %q", p.Name)
		}
		processorNames[p.Name] = true

		if !storeNames[p.Store] {
			return fmt.Errorf("processors[%d].store references unknown store %q", i, p.Store)
		}

		// Параметры должны разбираться уже на старте хоста
		if _, err := p.ForwarderParams(); err != nil {
			return fmt.Errorf("processors[%d] (%s): %w", i, p.Name, err)
		}
	}

	return nil
}
