package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORS            bool          `yaml:"cors" default:"true"`
		RunRate         float64       `yaml:"run_rate" default:"0.2"`
		RunBurst        int           `yaml:"run_burst" default:"2" validate:"min=1"`
	} `yaml:"server"`
	Log struct {
		Level          string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format         string        `yaml:"format" default:"console" validate:"oneof=json console"`
		Output         string        `yaml:"output" default:"stdout"`
		DigestTopic    string        `yaml:"digest_topic" default:"logging.errors"`
		DigestInterval time.Duration `yaml:"digest_interval" default:"30s"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Market struct {
		Timezone       string        `yaml:"timezone" default:"Europe/Stockholm"`
		Index          string        `yaml:"index" default:"^OMX"`
		Open           string        `yaml:"open" default:"09:00" validate:"datetime=15:04"`
		Close          string        `yaml:"close" default:"17:30" validate:"datetime=15:04"`
		EvalInterval   time.Duration `yaml:"eval_interval" default:"2m" validate:"min=10s"`
		DailyScanAt    string        `yaml:"daily_scan_at" default:"17:45" validate:"datetime=15:04"`
		WeeklyReportAt string        `yaml:"weekly_report_at" default:"18:00" validate:"datetime=15:04"`
		MorningAt      string        `yaml:"morning_summary_at" default:"08:45" validate:"datetime=15:04"`
		DiscoveryAt    string        `yaml:"discovery_at" default:"08:55" validate:"datetime=15:04"`
		EveningAt      string        `yaml:"evening_summary_at" default:"17:35" validate:"datetime=15:04"`
		HistoryRange   string        `yaml:"history_range" default:"1y"`
	} `yaml:"market"`
	Engine struct {
		StrategiesFile  string        `yaml:"strategies_file" default:"config/strategies.yaml"`
		RSWindow        int           `yaml:"rs_window" default:"20" validate:"min=2"`
		StopCooldown    time.Duration `yaml:"stop_cooldown" default:"24h"`
		RoutineCooldown time.Duration `yaml:"routine_cooldown" default:"2h"`
		EarningsWindow  time.Duration `yaml:"earnings_window" default:"48h"`
		SentimentItems  int           `yaml:"sentiment_items" default:"2" validate:"min=1"`
	} `yaml:"engine"`
	History struct {
		Source   string        `yaml:"source" default:"yahoo" validate:"oneof=yahoo influx"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"300s"`
		QuoteTTL time.Duration `yaml:"quote_ttl" default:"60s"`
		Archive  bool          `yaml:"archive" default:"true"`
	} `yaml:"history"`
	Yahoo struct {
		BaseURL     string        `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		Timeout     time.Duration `yaml:"timeout" default:"10s"`
		RatePerSec  float64       `yaml:"rate_per_sec" default:"4"`
		Burst       int           `yaml:"burst" default:"4"`
		EarningsTTL time.Duration `yaml:"earnings_ttl" default:"24h"`
	} `yaml:"yahoo"`
	Insider struct {
		Enabled      bool    `yaml:"enabled" default:"true"`
		BaseURL      string  `yaml:"base_url" default:"https://www.fi.se/sv/vara-register/insynshandel/GetInsynshandel/" validate:"url"`
		LookbackDays int     `yaml:"lookback_days" default:"30" validate:"min=1"`
		MinNotional  float64 `yaml:"min_notional" default:"500000"`
	} `yaml:"insider"`
	News struct {
		Enabled  bool   `yaml:"enabled" default:"true"`
		BaseURL  string `yaml:"base_url" default:"https://news.google.com/rss/search" validate:"url"`
		MaxItems int    `yaml:"max_items" default:"5" validate:"min=1"`
	} `yaml:"news"`
	Sentiment struct {
		Enabled    bool          `yaml:"enabled" default:"true"`
		APIKey     string        `yaml:"api_key"`
		BaseURL    string        `yaml:"base_url" default:"https://generativelanguage.googleapis.com/v1beta/openai/" validate:"url"`
		Model      string        `yaml:"model" default:"gemini-2.0-flash"`
		CacheTTL   time.Duration `yaml:"cache_ttl" default:"6h"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"6s"`
	} `yaml:"sentiment"`
	Notify struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		URL     string        `yaml:"url" default:"https://ntfy.sh" validate:"url"`
		Topic   string        `yaml:"topic" default:"aktiemotor"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"notify"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379" validate:"required"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"aktiemotor"`
	} `yaml:"redis"`
	Queue struct {
		Workers     int           `yaml:"workers" default:"2" validate:"min=1"`
		JobTimeout  time.Duration `yaml:"job_timeout" default:"10m"`
		MaxAttempts int           `yaml:"max_attempts" default:"3"`
	} `yaml:"queue"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled" default:"true"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		Topic        string   `yaml:"topic" default:"aktiemotor.recommendations"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"20ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"aktiemotor-audit"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"aktiemotor.recommendations.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"aktiemotor"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Influx struct {
		URL         string `yaml:"url" default:"http://localhost:8086"`
		Token       string `yaml:"token"`
		Org         string `yaml:"org" default:"aktiemotor"`
		Bucket      string `yaml:"bucket" default:"market"`
		Measurement string `yaml:"measurement" default:"stock_prices"`
	} `yaml:"influx"`
}

var validate = validator.New()

// Default returns a Config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads a .env file next to the working directory (if present),
// then the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	for _, env := range []string{".env", filepath.Join(filepath.Dir(path), ".env")} {
		if _, err := os.Stat(env); err == nil {
			if err := godotenv.Load(env); err != nil {
				return nil, fmt.Errorf("load %s: %w", env, err)
			}
			break
		}
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"ENVIRONMENT":         &c.Environment,
		"LOG_LEVEL":           &c.Log.Level,
		"HISTORY_SOURCE":      &c.History.Source,
		"REDIS_ADDR":          &c.Redis.Addr,
		"REDIS_PASSWORD":      &c.Redis.Password,
		"GEMINI_API_KEY":      &c.Sentiment.APIKey,
		"GEMINI_MODEL":        &c.Sentiment.Model,
		"NTFY_URL":            &c.Notify.URL,
		"NTFY_TOPIC":          &c.Notify.Topic,
		"CLICKHOUSE_HOST":     &c.ClickHouse.Host,
		"CLICKHOUSE_PASSWORD": &c.ClickHouse.Password,
		"INFLUX_URL":          &c.Influx.URL,
		"INFLUX_TOKEN":        &c.Influx.Token,
		"KAFKA_TOPIC":         &c.Kafka.Topic,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	for key, dst := range map[string]*bool{
		"KAFKA_ENABLED":      &c.Kafka.Enabled,
		"CLICKHOUSE_ENABLED": &c.ClickHouse.Enabled,
		"SENTIMENT_ENABLED":  &c.Sentiment.Enabled,
		"NOTIFY_ENABLED":     &c.Notify.Enabled,
	} {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s: failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	if c.History.Source == "influx" && c.Influx.Token == "" {
		return errors.New("influx.token is required when history.source is influx")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("market.timezone: %w", err)
	}
	return nil
}

// Location is the exchange time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
