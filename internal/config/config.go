package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the full service configuration.
//
// WARNING: Admin and CSRF contain secrets and must not be logged as-is; use
// Redacted.
type Config struct {
	Env       string          `mapstructure:"env"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Admin     AdminConfig     `mapstructure:"admin"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CSRF      CSRFConfig      `mapstructure:"csrf"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	TrustedProxies int           `mapstructure:"trusted_proxies"` // number of proxy hops whose X-Forwarded-For entries are trusted
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`      // Secret: plaintext, development only
	PasswordHash string        `mapstructure:"password_hash"` // Secret: bcrypt hash
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

// Window is a fixed-window request budget.
type Window struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

// FloodConfig drives the global per-client token bucket. PerSecond <= 0
// disables it.
type FloodConfig struct {
	Burst     int     `mapstructure:"burst"`
	PerSecond float64 `mapstructure:"per_second"`
}

type RateLimitConfig struct {
	Waitlist Window      `mapstructure:"waitlist"`
	Contact  Window      `mapstructure:"contact"`
	Login    Window      `mapstructure:"login"`
	Global   FloodConfig `mapstructure:"global"`
}

type CSRFConfig struct {
	Secret string        `mapstructure:"secret"` // Secret: HMAC key; empty disables enforcement
	TTL    time.Duration `mapstructure:"ttl"`
}

type RetentionConfig struct {
	Period time.Duration `mapstructure:"period"`
}

var defaults = map[string]any{
	"env":                         EnvDevelopment,
	"http.addr":                   ":8080",
	"http.read_timeout":           15 * time.Second,
	"http.write_timeout":          15 * time.Second,
	"http.idle_timeout":           60 * time.Second,
	"http.max_body_bytes":         int64(64 << 10),
	"http.allowed_origins":        []string{},
	"http.trusted_proxies":        0,
	"log.level":                   "info",
	"admin.username":              "",
	"admin.password":              "",
	"admin.password_hash":         "",
	"admin.session_ttl":           30 * time.Minute,
	"ratelimit.waitlist.max":      3,
	"ratelimit.waitlist.window":   time.Minute,
	"ratelimit.contact.max":       5,
	"ratelimit.contact.window":    time.Minute,
	"ratelimit.login.max":         5,
	"ratelimit.login.window":      15 * time.Minute,
	"ratelimit.global.burst":      20,
	"ratelimit.global.per_second": 5.0,
	"csrf.secret":                 "",
	"csrf.ttl":                    2 * time.Hour,
	"retention.period":            7 * 365 * 24 * time.Hour,
}

// envBindings maps config keys to the environment variables that can set
// them. The first name is preferred; later names are accepted for
// compatibility with plain deployments.
var envBindings = map[string][]string{
	"env":                         {"FORMGATE_ENV", "APP_ENV"},
	"http.addr":                   {"FORMGATE_HTTP_ADDR", "HTTP_ADDR"},
	"http.read_timeout":           {"FORMGATE_HTTP_READ_TIMEOUT"},
	"http.write_timeout":          {"FORMGATE_HTTP_WRITE_TIMEOUT"},
	"http.idle_timeout":           {"FORMGATE_HTTP_IDLE_TIMEOUT"},
	"http.max_body_bytes":         {"FORMGATE_HTTP_MAX_BODY_BYTES"},
	"http.allowed_origins":        {"FORMGATE_HTTP_ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
	"http.trusted_proxies":        {"FORMGATE_HTTP_TRUSTED_PROXIES", "TRUSTED_PROXIES"},
	"log.level":                   {"FORMGATE_LOG_LEVEL", "LOG_LEVEL"},
	"admin.username":              {"FORMGATE_ADMIN_USERNAME", "ADMIN_USERNAME"},
	"admin.password":              {"FORMGATE_ADMIN_PASSWORD", "ADMIN_PASSWORD"},
	"admin.password_hash":         {"FORMGATE_ADMIN_PASSWORD_HASH", "ADMIN_PASSWORD_HASH"},
	"admin.session_ttl":           {"FORMGATE_ADMIN_SESSION_TTL"},
	"ratelimit.waitlist.max":      {"FORMGATE_RATELIMIT_WAITLIST_MAX"},
	"ratelimit.waitlist.window":   {"FORMGATE_RATELIMIT_WAITLIST_WINDOW"},
	"ratelimit.contact.max":       {"FORMGATE_RATELIMIT_CONTACT_MAX"},
	"ratelimit.contact.window":    {"FORMGATE_RATELIMIT_CONTACT_WINDOW"},
	"ratelimit.login.max":         {"FORMGATE_RATELIMIT_LOGIN_MAX"},
	"ratelimit.login.window":      {"FORMGATE_RATELIMIT_LOGIN_WINDOW"},
	"ratelimit.global.burst":      {"FORMGATE_RATELIMIT_GLOBAL_BURST"},
	"ratelimit.global.per_second": {"FORMGATE_RATELIMIT_GLOBAL_PER_SECOND"},
	"csrf.secret":                 {"FORMGATE_CSRF_SECRET", "CSRF_SECRET"},
	"csrf.ttl":                    {"FORMGATE_CSRF_TTL"},
	"retention.period":            {"FORMGATE_RETENTION_PERIOD"},
}

// Load reads the optional dotenv files (".env" when none are given), then
// builds the config from defaults overridden by environment variables.
// Variables already present in the environment win over dotenv values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)
		if err := v.BindEnv(inputs...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Admin.Username = strings.TrimSpace(c.Admin.Username)
	c.Admin.PasswordHash = strings.TrimSpace(c.Admin.PasswordHash)
	origins := c.HTTP.AllowedOrigins[:0]
	for _, o := range c.HTTP.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.HTTP.AllowedOrigins = origins
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("env: unknown environment %q", c.Env))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr: must be set"))
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http.max_body_bytes: must be positive"))
	}
	if c.HTTP.TrustedProxies < 0 {
		errs = append(errs, errors.New("http.trusted_proxies: must not be negative"))
	}
	if c.Admin.SessionTTL <= 0 {
		errs = append(errs, errors.New("admin.session_ttl: must be positive"))
	}
	if (c.Admin.Password != "" || c.Admin.PasswordHash != "") && c.Admin.Username == "" {
		errs = append(errs, errors.New("admin.username: required when a password is configured"))
	}
	for name, w := range map[string]Window{
		"waitlist": c.RateLimit.Waitlist,
		"contact":  c.RateLimit.Contact,
		"login":    c.RateLimit.Login,
	} {
		if w.Max <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.%s.max: must be positive", name))
		}
		if w.Window <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.%s.window: must be positive", name))
		}
	}
	if c.RateLimit.Global.PerSecond > 0 && c.RateLimit.Global.Burst <= 0 {
		errs = append(errs, errors.New("ratelimit.global.burst: must be positive when the flood guard is enabled"))
	}
	if c.CSRF.TTL <= 0 {
		errs = append(errs, errors.New("csrf.ttl: must be positive"))
	}
	if c.Retention.Period <= 0 {
		errs = append(errs, errors.New("retention.period: must be positive"))
	}

	if c.Production() {
		if c.Admin.Password != "" {
			errs = append(errs, errors.New("admin.password: plaintext passwords are not allowed in production, set admin.password_hash"))
		}
		if c.Admin.PasswordHash == "" {
			errs = append(errs, errors.New("admin.password_hash: required in production"))
		}
		if c.CSRF.Secret == "" {
			errs = append(errs, errors.New("csrf.secret: required in production"))
		}
	}
	return errors.Join(errs...)
}

// Redacted returns a printable view of the config with secrets masked.
func (c *Config) Redacted() map[string]any {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "[redacted]"
	}
	return map[string]any{
		"env":                  c.Env,
		"http.addr":            c.HTTP.Addr,
		"http.read_timeout":    c.HTTP.ReadTimeout.String(),
		"http.write_timeout":   c.HTTP.WriteTimeout.String(),
		"http.idle_timeout":    c.HTTP.IdleTimeout.String(),
		"http.max_body_bytes":  c.HTTP.MaxBodyBytes,
		"http.allowed_origins": c.HTTP.AllowedOrigins,
		"http.trusted_proxies": c.HTTP.TrustedProxies,
		"log.level":            c.Log.Level,
		"admin.username":       c.Admin.Username,
		"admin.password":       mask(c.Admin.Password),
		"admin.password_hash":  mask(c.Admin.PasswordHash),
		"admin.session_ttl":    c.Admin.SessionTTL.String(),
		"ratelimit.waitlist":   fmt.Sprintf("%d/%s", c.RateLimit.Waitlist.Max, c.RateLimit.Waitlist.Window),
		"ratelimit.contact":    fmt.Sprintf("%d/%s", c.RateLimit.Contact.Max, c.RateLimit.Contact.Window),
		"ratelimit.login":      fmt.Sprintf("%d/%s", c.RateLimit.Login.Max, c.RateLimit.Login.Window),
		"ratelimit.global":     fmt.Sprintf("burst=%d rate=%g/s", c.RateLimit.Global.Burst, c.RateLimit.Global.PerSecond),
		"csrf.secret":          mask(c.CSRF.Secret),
		"csrf.ttl":             c.CSRF.TTL.String(),
		"retention.period":     c.Retention.Period.String(),
	}
}
