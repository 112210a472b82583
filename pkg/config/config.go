package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string   `yaml:"environment" default:"development" validate:"required"`
	Symbol      string   `yaml:"symbol" default:"BTCUSDT" validate:"required,uppercase"`
	Server      Server   `yaml:"server"`
	Metrics     Metrics  `yaml:"metrics"`
	Log         Log      `yaml:"log"`
	Exchange    Exchange `yaml:"exchange"`
	Pollers     Pollers  `yaml:"pollers"`
	Analysis    Analysis `yaml:"analysis"`
	Pipeline    Pipeline `yaml:"pipeline"`
	Stream      Stream   `yaml:"stream"`
	Redis       Redis    `yaml:"redis"`
	Kafka       Kafka    `yaml:"kafka"`
}

type Server struct {
	Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s" validate:"gt=0"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"500ms"`
	RateLimit       struct {
		Capacity     float64 `yaml:"capacity" default:"20" validate:"gte=1"`
		RefillPerSec float64 `yaml:"refill_per_sec" default:"10" validate:"gt=0"`
	} `yaml:"rate_limit"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type Log struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format     string `yaml:"format" default:"console" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout" validate:"required"`
	TimeFormat string `yaml:"time_format"`
}

type Exchange struct {
	BaseURL           string        `yaml:"base_url" default:"https://fapi.binance.com" validate:"required,url"`
	APIKey            string        `yaml:"api_key"`
	SecretKey         string        `yaml:"secret_key"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" default:"10s" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"10" validate:"gt=0"`
	Burst             int           `yaml:"burst" default:"20" validate:"gte=1"`
	Breaker           struct {
		MaxFailures uint32        `yaml:"max_failures" default:"5" validate:"gte=1"`
		OpenTimeout time.Duration `yaml:"open_timeout" default:"30s" validate:"gt=0"`
		Interval    time.Duration `yaml:"interval" default:"60s"`
	} `yaml:"breaker"`
}

// Poller is the schedule of one indicator family.
type Poller struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

type Pollers struct {
	Price         Poller  `yaml:"price"`
	Funding       Poller  `yaml:"funding"`
	OpenInterest  Poller  `yaml:"open_interest"`
	LongShort     Poller  `yaml:"long_short"`
	OrderFlow     Poller  `yaml:"order_flow"`
	TradesLimit   int     `yaml:"trades_limit" default:"500" validate:"gte=1,lte=1000"`
	LongShortSpan string  `yaml:"long_short_period" default:"5m" validate:"oneof=5m 15m 30m 1h 2h 4h 6h 12h 1d"`
	LargeTradeQty float64 `yaml:"large_trade_qty" default:"50" validate:"gt=0"`
}

// SetDefaults fills per-family schedules; called by defaults.Set.
func (p *Pollers) SetDefaults() {
	fill := func(dst *Poller, interval, timeout time.Duration) {
		if dst.Interval == 0 {
			dst.Interval = interval
		}
		if dst.Timeout == 0 {
			dst.Timeout = timeout
		}
	}
	fill(&p.Price, time.Second, 900*time.Millisecond)
	fill(&p.Funding, 30*time.Second, 5*time.Second)
	fill(&p.OpenInterest, 10*time.Second, 5*time.Second)
	fill(&p.LongShort, 30*time.Second, 5*time.Second)
	fill(&p.OrderFlow, 2*time.Second, 1800*time.Millisecond)
}

type Analysis struct {
	Model           string        `yaml:"model" default:"composite" validate:"oneof=composite tactical"`
	Interval        time.Duration `yaml:"interval" default:"10s" validate:"gt=0"`
	StaleMultiplier float64       `yaml:"stale_multiplier" default:"3" validate:"gt=0"`
	TrendBand       float64       `yaml:"trend_band_percent" default:"0.1" validate:"gte=0"`
	Scoring         Scoring       `yaml:"scoring"`
	Rules           Rules         `yaml:"rules"`
	Classifier      Classifier    `yaml:"classifier"`
	Tactical        Tactical      `yaml:"tactical"`
}

// Scoring holds the weight and cap of each composite channel.
type Scoring struct {
	FundingWeight   float64 `yaml:"funding_weight" default:"30"`
	FundingCap      float64 `yaml:"funding_cap" default:"30" validate:"gte=0"`
	OIWeight        float64 `yaml:"oi_weight" default:"2"`
	OICap           float64 `yaml:"oi_cap" default:"20" validate:"gte=0"`
	LongShortWeight float64 `yaml:"long_short_weight" default:"20"`
	LongShortCap    float64 `yaml:"long_short_cap" default:"20" validate:"gte=0"`
	FlowWeight      float64 `yaml:"flow_weight" default:"15"`
	FlowScale       float64 `yaml:"flow_scale" default:"10000000" validate:"gt=0"`
	FlowCap         float64 `yaml:"flow_cap" default:"15" validate:"gte=0"`
	PriceWeight     float64 `yaml:"price_weight" default:"3"`
	PriceCap        float64 `yaml:"price_cap" default:"15" validate:"gte=0"`
}

type Rules struct {
	CrowdedLongFunding    float64 `yaml:"crowded_long_funding" default:"0.0003"`
	CrowdedLongOIChange   float64 `yaml:"crowded_long_oi_change" default:"10"`
	DumpFlowDelta         float64 `yaml:"dump_flow_delta" default:"-5000000"`
	NearLowPercent        float64 `yaml:"near_low_percent" default:"1" validate:"gte=0"`
	SqueezeFunding        float64 `yaml:"squeeze_funding" default:"-0.0001"`
	SqueezeOIChange       float64 `yaml:"squeeze_oi_change" default:"5"`
	ExtremeLongRatio      float64 `yaml:"extreme_long_ratio" default:"2.0" validate:"gt=0"`
	ExtremeShortRatio     float64 `yaml:"extreme_short_ratio" default:"0.3" validate:"gt=0"`
	BreakoutFlowDelta     float64 `yaml:"breakout_flow_delta" default:"5000000"`
	DistributionSellShare float64 `yaml:"distribution_sell_share" default:"70" validate:"gte=0,lte=100"`
	DistributionFloor     float64 `yaml:"distribution_floor" default:"5000000" validate:"gte=0"`
	DivergenceOIChange    float64 `yaml:"divergence_oi_change" default:"-2"`
}

type Classifier struct {
	LongScore         int     `yaml:"long_score" default:"50"`
	ShortScore        int     `yaml:"short_score" default:"-50"`
	BaseConfidence    float64 `yaml:"base_confidence" default:"50"`
	MaxConfidence     float64 `yaml:"max_confidence" default:"90" validate:"gte=0,lte=100"`
	WarningConfidence float64 `yaml:"warning_confidence" default:"80" validate:"gte=0,lte=100"`
	UnclearConfidence float64 `yaml:"unclear_confidence" default:"60" validate:"gte=0,lte=100"`
}

// Tactical configures the two-factor funding/open-interest model.
type Tactical struct {
	Base           int     `yaml:"base" default:"50"`
	HighFunding    float64 `yaml:"high_funding" default:"0.0003"`
	HighFundingAdj int     `yaml:"high_funding_adj" default:"-25"`
	LowFunding     float64 `yaml:"low_funding" default:"-0.0001"`
	LowFundingAdj  int     `yaml:"low_funding_adj" default:"20"`
	OIChange       float64 `yaml:"oi_change" default:"5" validate:"gte=0"`
	OIUpTrendUp    int     `yaml:"oi_up_trend_up" default:"15"`
	OIUpTrendDown  int     `yaml:"oi_up_trend_down" default:"-15"`
	OIDownTrendUp  int     `yaml:"oi_down_trend_up" default:"-10"`
	OIDownTrendDn  int     `yaml:"oi_down_trend_down" default:"10"`
	LongScore      int     `yaml:"long_score" default:"75"`
	ShortScore     int     `yaml:"short_score" default:"25"`
}

type Pipeline struct {
	BufferSize  int           `yaml:"buffer_size" default:"64" validate:"gte=1"`
	MaxAttempts int           `yaml:"max_attempts" default:"5" validate:"gte=1"`
	BackoffMin  time.Duration `yaml:"backoff_min" default:"50ms" validate:"gt=0"`
	BackoffMax  time.Duration `yaml:"backoff_max" default:"2s" validate:"gt=0"`
	Timeout     time.Duration `yaml:"timeout" default:"5s" validate:"gt=0"`
}

type Stream struct {
	Enabled      bool          `yaml:"enabled" default:"true"`
	SendBuffer   int           `yaml:"send_buffer" default:"16" validate:"gte=1"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s" validate:"gt=0"`
	PingInterval time.Duration `yaml:"ping_interval" default:"30s" validate:"gt=0"`
}

type Redis struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host" default:"localhost"`
	Port     int           `yaml:"port" default:"6379" validate:"gte=1,lte=65535"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	PoolSize int           `yaml:"pool_size" default:"10" validate:"gte=1"`
	Prefix   string        `yaml:"prefix" default:"sentinel"`
	TTL      time.Duration `yaml:"ttl"` // 0 means stale multiplier x analysis interval
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	Topic        string   `yaml:"topic" default:"sentinel.analysis"`
	LogTopic     string   `yaml:"log_topic"`
	RequiredAcks int      `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
		Linger       time.Duration `yaml:"linger" default:"100ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"1" validate:"gte=1"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML configuration file on top of the defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
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
	if v := os.Getenv("SENTINEL_SYMBOL"); v != "" {
		c.Symbol = strings.ToUpper(v)
	}
	if v := os.Getenv("ANALYSIS_MODEL"); v != "" {
		c.Analysis.Model = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.Exchange.BaseURL = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.Exchange.SecretKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	return nil
}

// Validate checks struct tags and the constraints that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	schedules := map[string]Poller{
		"price":         c.Pollers.Price,
		"funding":       c.Pollers.Funding,
		"open_interest": c.Pollers.OpenInterest,
		"long_short":    c.Pollers.LongShort,
		"order_flow":    c.Pollers.OrderFlow,
	}
	for name, p := range schedules {
		if every := ScheduleInterval(p.Interval); p.Timeout > every {
			return fmt.Errorf("pollers.%s.timeout (%s) must not exceed the scheduled interval (%s)", name, p.Timeout, every)
		}
	}

	if c.Analysis.Rules.ExtremeShortRatio >= c.Analysis.Rules.ExtremeLongRatio {
		return fmt.Errorf("analysis.rules.extreme_short_ratio must be below extreme_long_ratio")
	}
	if c.Analysis.Classifier.ShortScore >= c.Analysis.Classifier.LongScore {
		return fmt.Errorf("analysis.classifier.short_score must be below long_score")
	}
	if c.Pipeline.BackoffMin > c.Pipeline.BackoffMax {
		return fmt.Errorf("pipeline.backoff_min must not exceed backoff_max")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}

// ScheduleInterval is the cadence a job configured at d actually runs at.
// The scheduler works in whole seconds, with one second as the floor.
func ScheduleInterval(d time.Duration) time.Duration {
	if d < time.Second {
		return time.Second
	}
	return d.Truncate(time.Second)
}

// ResultTTL is how long a stored result stays readable before it counts as expired.
func (c *Config) ResultTTL() time.Duration {
	if c.Redis.TTL > 0 {
		return c.Redis.TTL
	}
	return time.Duration(c.Analysis.StaleMultiplier * float64(ScheduleInterval(c.Analysis.Interval)))
}
