package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/comigor/bad-employee-go/internal/logger"
)

const envPrefix = "BAD_EMPLOYEE"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application configuration
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Trigger  TriggerConfig  `mapstructure:"trigger"`
	Redis    RedisConfig    `mapstructure:"redis"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
	// Persona overrides the built-in preamble when set.
	Persona string `mapstructure:"persona"`
}

// DiscordConfig holds the bot credentials
type DiscordConfig struct {
	Token         string `mapstructure:"token"`
	CommandPrefix string `mapstructure:"command_prefix"`
}

// DatabaseConfig selects and locates the history store
type DatabaseConfig struct {
	Driver   string        `mapstructure:"driver"`
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Name     string        `mapstructure:"name"`
	SSLMode  string        `mapstructure:"sslmode"`
	Path     string        `mapstructure:"path"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TriggerConfig configures when the bot answers
type TriggerConfig struct {
	Keywords []string      `mapstructure:"keywords"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// RedisConfig is optional; an empty Addr keeps cooldowns in memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HistoryConfig bounds how much history is fed into prompts.
type HistoryConfig struct {
	// Window of zero means the author's whole history.
	Window time.Duration `mapstructure:"window"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Error reports a missing or invalid setting. It is fatal at startup.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Load reads config.yaml (path, CONFIG_PATH, or the working directory),
// an optional .env file and BAD_EMPLOYEE_* environment variables.
// Flags from flags (may be nil) that were set on the command line win over
// everything else. A missing config file is not an error unless path was
// given explicitly.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.L.Warn("failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.command_prefix", "!")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "bad_employee")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "history.db")
	v.SetDefault("database.timeout", 5*time.Second)

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 15*time.Second)

	v.SetDefault("trigger.keywords", []string{"perl"})
	v.SetDefault("trigger.cooldown", time.Duration(0))

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("history.window", time.Duration(0))
	v.SetDefault("persona", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// legacyEnv keeps the variable names the bot was historically deployed with.
var legacyEnv = map[string]string{
	"database.name":     "BAD_EMPLOYEE_DB",
	"database.user":     "BAD_EMPLOYEE_USER",
	"database.password": "BAD_EMPLOYEE_PASS",
	"database.host":     "BAD_EMPLOYEE_HOST",
	"database.port":     "BAD_EMPLOYEE_PORT",
	"llm.api_key":       "GEMINI_API_KEY",
	"discord.token":     "DISCORD_APP_TOKEN",
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		canonical := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, canonical, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// flagKeys maps config keys to the CLI flags that override them.
var flagKeys = map[string]string{
	"log.level":  "log-level",
	"log.format": "log-format",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for key, name := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))

	keywords := c.Trigger.Keywords[:0]
	for _, k := range c.Trigger.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	c.Trigger.Keywords = keywords
}

// ValidateDatabase checks what every command touching the store needs.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" && c.Database.Name == "" {
			return &Error{Key: "database.name", Reason: "required for the postgres driver"}
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return &Error{Key: "database.path", Reason: "required for the sqlite driver"}
		}
	default:
		return &Error{Key: "database.driver", Reason: fmt.Sprintf("unsupported driver %q", c.Database.Driver)}
	}
	if c.Database.Timeout <= 0 {
		return &Error{Key: "database.timeout", Reason: "must be positive"}
	}
	return nil
}

// ValidateLLM checks the generative backend credentials.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return &Error{Key: "llm.api_key", Reason: "API key for the AI backend not provided"}
	}
	if c.LLM.Timeout <= 0 {
		return &Error{Key: "llm.timeout", Reason: "must be positive"}
	}
	return nil
}

// ValidateBot checks everything the long-running bot needs.
func (c *Config) ValidateBot() error {
	if c.Discord.Token == "" {
		return &Error{Key: "discord.token", Reason: "bot token not provided"}
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	return c.ValidateLLM()
}

// DSN returns the postgres connection string, preferring database.url.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}
