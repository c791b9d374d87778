package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"tracking/internal/adapters/in/ws"
	"tracking/internal/core/application/relay"
	"tracking/internal/core/domain/services"
	"tracking/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	PolicyPermissive = "permissive"
	PolicyParty      = "party"
)

// Config is read from the environment (and .env when present).
type Config struct {
	HTTPPort    string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	StoreDriver string
	LogLevel    string
	LogFormat   string
	// RelayConfigPath points to the optional YAML file with relay tunables.
	RelayConfigPath string

	Relay RelayConfig
}

// DSN builds the PostgreSQL connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// RelayConfig holds the tunables of the relay core.
type RelayConfig struct {
	OutboxSize         int                       `yaml:"outbox_size"`
	SubscriptionPolicy string                    `yaml:"subscription_policy"`
	Simulation         services.TrajectoryConfig `yaml:"simulation"`
	WebSocket          WebSocketConfig           `yaml:"websocket"`
	// ListenNotifications enables the order_status_changed listener (postgres only).
	ListenNotifications bool `yaml:"listen_notifications"`
	Seed                Seed `yaml:"seed"`
}

type WebSocketConfig struct {
	ReadLimit      int64         `yaml:"read_limit"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PongWait       time.Duration `yaml:"pong_wait"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Seed lists orders and tokens created at startup. Existing rows are kept.
type Seed struct {
	Orders []SeedOrder `yaml:"orders"`
	Tokens []SeedToken `yaml:"tokens"`
}

type SeedOrder struct {
	ID         string    `yaml:"id"`
	VendorID   string    `yaml:"vendor_id"`
	CustomerID string    `yaml:"customer_id"`
	AgentID    string    `yaml:"agent_id"`
	Status     string    `yaml:"status"`
	Pickup     SeedPoint `yaml:"pickup"`
	Delivery   SeedPoint `yaml:"delivery"`
}

type SeedPoint struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type SeedToken struct {
	Token  string        `yaml:"token"`
	UserID string        `yaml:"user_id"`
	Role   string        `yaml:"role"`
	TTL    time.Duration `yaml:"ttl"`
}

// DefaultRelayConfig returns the reference values: 64 frame outboxes, any
// identity may watch any order, 20 samples 3s apart with ±0.00025° jitter.
func DefaultRelayConfig() RelayConfig {
	websocket := ws.DefaultConfig()
	return RelayConfig{
		OutboxSize:         relay.DefaultOutboxSize,
		SubscriptionPolicy: PolicyPermissive,
		Simulation:         services.DefaultTrajectoryConfig(),
		WebSocket: WebSocketConfig{
			ReadLimit:    websocket.ReadLimit,
			WriteTimeout: websocket.WriteTimeout,
			PongWait:     websocket.PongWait,
			PingPeriod:   websocket.PingPeriod,
		},
	}
}

// LoadRelayConfig reads path over the defaults. An empty path yields the defaults.
func LoadRelayConfig(path string) (RelayConfig, error) {
	config := DefaultRelayConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("read relay config: %w", err)
	}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse relay config %s: %w", path, err)
	}
	return config, config.Validate()
}

// Validate checks the values that cannot be defaulted.
func (c RelayConfig) Validate() error {
	var problems []error
	if c.OutboxSize <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("outbox_size",
			fmt.Errorf("%d is not greater than 0", c.OutboxSize)))
	}
	if c.SubscriptionPolicy != PolicyPermissive && c.SubscriptionPolicy != PolicyParty {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("subscription_policy",
			fmt.Errorf("%q is neither %q nor %q", c.SubscriptionPolicy, PolicyPermissive, PolicyParty)))
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("websocket.ping_period",
			fmt.Errorf("%s is not shorter than pong_wait %s", c.WebSocket.PingPeriod, c.WebSocket.PongWait)))
	}
	problems = append(problems, c.Simulation.Validate())
	return errors.Join(problems...)
}

func (c WebSocketConfig) transport() ws.Config {
	return ws.Config{
		ReadLimit:      c.ReadLimit,
		WriteTimeout:   c.WriteTimeout,
		PongWait:       c.PongWait,
		PingPeriod:     c.PingPeriod,
		AllowedOrigins: c.AllowedOrigins,
	}
}
