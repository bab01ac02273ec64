package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Strategy   StrategyConfig   `yaml:"strategy"`
	Bankroll   BankrollConfig   `yaml:"bankroll"`
	Feed       FeedConfig       `yaml:"feed"`
	Venue      VenueConfig      `yaml:"venue"`
	Engine     EngineConfig     `yaml:"engine"`
	Simulation SimulationConfig `yaml:"simulation"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
	Guard      GuardConfig      `yaml:"guard"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// StrategyConfig controla la regla de entrada.
type StrategyConfig struct {
	MinMinute   int     `yaml:"min_minute"`
	MinDrawOdds float64 `yaml:"min_draw_odds"` // exclusivo: odds > min_draw_odds
}

// BankrollConfig controla el capital inicial y el tamaño del stake.
type BankrollConfig struct {
	Initial         float64 `yaml:"initial"`
	StakePercentage float64 `yaml:"stake_percentage"` // 0.02 = 2% del bankroll liquidado
	MinimumStake    float64 `yaml:"minimum_stake"`
}

// FeedConfig describe el WebSocket de partidos en vivo.
type FeedConfig struct {
	URL                   string   `yaml:"url"`
	Token                 string   `yaml:"token"`
	Channels              []string `yaml:"channels"`
	Market                string   `yaml:"market"`
	HandshakeTimeoutSecs  int      `yaml:"handshake_timeout_seconds"`
	Reconnect             bool     `yaml:"reconnect"`
	ReconnectDelayMillis  int      `yaml:"reconnect_delay_ms"`
	ReconnectMaxDelaySecs int      `yaml:"reconnect_max_delay_seconds"`
	ReconnectMax          int      `yaml:"reconnect_max"` // 0 = sin límite
}

// VenueConfig contiene el endpoint y credenciales de la exchange.
type VenueConfig struct {
	BaseURL        string  `yaml:"base_url"`
	Username       string  `yaml:"username"`
	Password       string  `yaml:"password"`
	Price          float64 `yaml:"price"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
}

// EngineConfig controla el motor de apuestas.
type EngineConfig struct {
	Async                   bool    `yaml:"async"`
	PlacementTimeoutSeconds int     `yaml:"placement_timeout_seconds"`
	FixedSettleOdds         float64 `yaml:"fixed_settle_odds"` // 0 = odds del snapshot
}

// SimulationConfig controla el modo -simulate.
type SimulationConfig struct {
	Matches         int     `yaml:"matches"`
	Seed            uint64  `yaml:"seed"`
	UpdatesPerMatch int     `yaml:"updates_per_match"`
	FixedWinOdds    float64 `yaml:"fixed_win_odds"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// EventsConfig habilita la publicación de eventos de apuestas en Kafka.
// Sin brokers no se publica nada.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// GuardConfig habilita el claim compartido por partido en Redis.
// Sin redis_addr se usa un guard en memoria.
type GuardConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLMinutes    int    `yaml:"ttl_minutes"`
	Instance      string `yaml:"instance"`
}

// MetricsConfig controla el servidor de /metrics, /healthz y /status.
// Sin addr no se levanta.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve la configuración por defecto, sin archivo.
func Default() *Config {
	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// Validate rechaza valores que el motor no puede usar.
func (c *Config) Validate() error {
	var errs []error
	if c.Strategy.MinMinute < 0 || c.Strategy.MinMinute > 120 {
		errs = append(errs, fmt.Errorf("strategy.min_minute %d out of range [0,120]", c.Strategy.MinMinute))
	}
	if c.Strategy.MinDrawOdds < 1 {
		errs = append(errs, fmt.Errorf("strategy.min_draw_odds %.2f must be >= 1", c.Strategy.MinDrawOdds))
	}
	if c.Bankroll.Initial <= 0 {
		errs = append(errs, fmt.Errorf("bankroll.initial %.2f must be positive", c.Bankroll.Initial))
	}
	if c.Bankroll.StakePercentage <= 0 || c.Bankroll.StakePercentage > 1 {
		errs = append(errs, fmt.Errorf("bankroll.stake_percentage %.4f out of range (0,1]", c.Bankroll.StakePercentage))
	}
	if c.Bankroll.MinimumStake < 0 {
		errs = append(errs, fmt.Errorf("bankroll.minimum_stake %.2f must not be negative", c.Bankroll.MinimumStake))
	}
	if c.Simulation.Matches < 0 {
		errs = append(errs, fmt.Errorf("simulation.matches %d must not be negative", c.Simulation.Matches))
	}
	if c.Engine.FixedSettleOdds != 0 && c.Engine.FixedSettleOdds < 1 {
		errs = append(errs, fmt.Errorf("engine.fixed_settle_odds %.2f must be >= 1", c.Engine.FixedSettleOdds))
	}
	return errors.Join(errs...)
}

// InitialBankroll devuelve el capital inicial como decimal.
func (c *Config) InitialBankroll() decimal.Decimal {
	return decimal.NewFromFloat(c.Bankroll.Initial)
}

// StakePercentage y MinimumStake devuelven la política de stake como decimales.
func (c *Config) StakePercentage() decimal.Decimal {
	return decimal.NewFromFloat(c.Bankroll.StakePercentage)
}

func (c *Config) MinimumStake() decimal.Decimal {
	return decimal.NewFromFloat(c.Bankroll.MinimumStake)
}

// MinDrawOdds devuelve el umbral de odds como decimal.
func (c *Config) MinDrawOdds() decimal.Decimal {
	return decimal.NewFromFloat(c.Strategy.MinDrawOdds)
}

// PlacementTimeout devuelve el timeout por orden como time.Duration.
func (c *Config) PlacementTimeout() time.Duration {
	return time.Duration(c.Engine.PlacementTimeoutSeconds) * time.Second
}

// GuardTTL devuelve la expiración de cada claim.
func (c *Config) GuardTTL() time.Duration {
	return time.Duration(c.Guard.TTLMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
// Las credenciales no deberían vivir en el YAML.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("FEED_TOKEN"); v != "" {
		cfg.Feed.Token = v
	}
	if v := os.Getenv("VENUE_USERNAME"); v != "" {
		cfg.Venue.Username = v
	}
	if v := os.Getenv("VENUE_PASSWORD"); v != "" {
		cfg.Venue.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Guard.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Guard.RedisPassword = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = splitList(v)
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("DRAWBOT_INSTANCE"); v != "" {
		cfg.Guard.Instance = v
	}
	if v := os.Getenv("SIMULATION_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = seed
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Strategy.MinMinute <= 0 {
		cfg.Strategy.MinMinute = 80
	}
	if cfg.Strategy.MinDrawOdds <= 0 {
		cfg.Strategy.MinDrawOdds = 1.20
	}
	if cfg.Bankroll.Initial <= 0 {
		cfg.Bankroll.Initial = 100
	}
	if cfg.Bankroll.StakePercentage <= 0 {
		cfg.Bankroll.StakePercentage = 0.02
	}
	if cfg.Bankroll.MinimumStake <= 0 {
		cfg.Bankroll.MinimumStake = 2
	}
	if cfg.Feed.HandshakeTimeoutSecs <= 0 {
		cfg.Feed.HandshakeTimeoutSecs = 10
	}
	if cfg.Feed.ReconnectDelayMillis <= 0 {
		cfg.Feed.ReconnectDelayMillis = 1000
	}
	if cfg.Feed.ReconnectMaxDelaySecs <= 0 {
		cfg.Feed.ReconnectMaxDelaySecs = 30
	}
	if cfg.Venue.BaseURL == "" {
		cfg.Venue.BaseURL = "https://api.smarkets.com/v3/"
	}
	if cfg.Venue.Price <= 0 {
		cfg.Venue.Price = 1.2
	}
	if cfg.Venue.TimeoutSeconds <= 0 {
		cfg.Venue.TimeoutSeconds = 10
	}
	if cfg.Venue.RatePerSec <= 0 {
		cfg.Venue.RatePerSec = 5
	}
	if cfg.Engine.PlacementTimeoutSeconds <= 0 {
		cfg.Engine.PlacementTimeoutSeconds = 10
	}
	if cfg.Simulation.Matches <= 0 {
		cfg.Simulation.Matches = 100
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = 1
	}
	if cfg.Simulation.UpdatesPerMatch <= 0 {
		cfg.Simulation.UpdatesPerMatch = 1
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "drawbot.db"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "drawbot.bets"
	}
	if cfg.Guard.TTLMinutes <= 0 {
		cfg.Guard.TTLMinutes = 360
	}
	if cfg.Guard.Instance == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Guard.Instance = host
		} else {
			cfg.Guard.Instance = "drawbot"
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
