// Package config loads the application settings.
//
// Values are merged in the following order, later sources winning:
// built-in defaults, a JSON file (CONFIG env var or -c flag), environment
// variables (optionally from a .env file), command line flags.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
)

// Config holds every setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	ShortURLBase        string        `env:"BASE_URL" json:"base_url" validate:"url"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"omitempty,writablepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout" validate:"gt=0"`

	SessionCookieName         string        `env:"SESSION_COOKIE_NAME" json:"session_cookie_name" validate:"required"`
	SessionSigningKeys        []string      `env:"SESSION_SIGNING_KEYS" envSeparator:"," json:"session_signing_keys" validate:"omitempty,dive,base64url"`
	SessionTTL                time.Duration `env:"SESSION_TTL" json:"session_ttl" validate:"gt=0"`
	PasswordHashCost          int           `env:"PASSWORD_HASH_COST" json:"password_hash_cost" validate:"min=4,max=31"`
	ShortIDGenerationAttempts int           `env:"SHORT_ID_GENERATION_ATTEMPTS" json:"short_id_generation_attempts" validate:"min=1"`

	EnableHTTPS   bool   `env:"ENABLE_HTTPS" json:"enable_https"`
	TLSCertFile   string `env:"TLS_CERT_FILE" json:"tls_cert_file" validate:"required_if=EnableHTTPS true"`
	TLSKeyFile    string `env:"TLS_KEY_FILE" json:"tls_key_file" validate:"required_if=EnableHTTPS true"`
	GRPCAddr      string `env:"GRPC_ADDRESS" json:"grpc_address" validate:"omitempty,hostname_port"`
	TrustedSubnet string `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`

	ConfigFile string `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	RunAddr:                   ":8080",
	ShortURLBase:              "http://localhost:8080",
	LogLevel:                  "info",
	DBConnectionTimeout:       10 * time.Second,
	SessionCookieName:         "session",
	SessionTTL:                24 * time.Hour,
	PasswordHashCost:          10,
	ShortIDGenerationAttempts: 10,
	TLSCertFile:               "cert.pem",
	TLSKeyFile:                "key.pem",
}

// ErrNoSigningKeys is returned by DecodedSigningKeys when SESSION_SIGNING_KEYS is not set.
var ErrNoSigningKeys = errors.New("no session signing keys configured")

var allowedLogLevels = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips command line parsing, which is what tests usually want.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func validateWritablePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		return false
	}
	_, err = os.Stat(filepath.Dir(path))

	return err == nil
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("writablepath", validateWritablePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// New builds a validated Config from defaults, the JSON file, env and flags.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := &Config{}

	configFile := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		if fromFlag := lookupConfigFlag(options.args); fromFlag != "" {
			configFile = fromFlag
		}
	}
	if configFile != "" {
		err = cfg.loadJSON(configFile)
		if err != nil {
			return nil, err
		}
	}
	applyDefaults(cfg, defaultConfig)

	err = env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		err = cfg.parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}
	cfg.ConfigFile = configFile
	cfg.SessionSigningKeys = splitNonEmpty(strings.Join(cfg.SessionSigningKeys, ","))

	err = cfg.clarifyShortURLBase()
	if err != nil {
		return nil, err
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// DecodedSigningKeys returns the session signing keys as raw bytes, in order.
// There is no built-in key: with none configured it returns ErrNoSigningKeys.
func (c *Config) DecodedSigningKeys() ([][]byte, error) {
	if len(c.SessionSigningKeys) == 0 {
		return nil, ErrNoSigningKeys
	}

	keys := make([][]byte, 0, len(c.SessionSigningKeys))
	for _, encoded := range c.SessionSigningKeys {
		key, err := base64.URLEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("in internal/config/config.go/DecodedSigningKeys(): error while `base64.URLEncoding.DecodeString()` calling: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func (c *Config) loadJSON(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	var fromFile struct {
		Config
		DBConnectionTimeout string `json:"db_connection_timeout"`
		SessionTTL          string `json:"session_ttl"`
	}
	err = json.Unmarshal(raw, &fromFile)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}
	*c = fromFile.Config

	if fromFile.DBConnectionTimeout != "" {
		c.DBConnectionTimeout, err = time.ParseDuration(fromFile.DBConnectionTimeout)
		if err != nil {
			return fmt.Errorf("invalid db_connection_timeout in %s: %w", path, err)
		}
	}
	if fromFile.SessionTTL != "" {
		c.SessionTTL, err = time.ParseDuration(fromFile.SessionTTL)
		if err != nil {
			return fmt.Errorf("invalid session_ttl in %s: %w", path, err)
		}
	}

	return nil
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("shortener", flag.ContinueOnError)

	var signingKeys string
	flags.String("c", c.ConfigFile, "path to a JSON configuration file")
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.ShortURLBase, "b", c.ShortURLBase, "base address of the resulting shortened URL")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with database")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "A string with the database connection details")
	flags.StringVar(&signingKeys, "k", strings.Join(c.SessionSigningKeys, ","), "comma separated base64url session signing keys, the first one signs")
	flags.BoolVar(&c.EnableHTTPS, "s", c.EnableHTTPS, "serve HTTPS")
	flags.StringVar(&c.GRPCAddr, "g", c.GRPCAddr, "address of the gRPC health server")
	flags.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "CIDR allowed to read internal stats")

	err := flags.Parse(args)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flags.Parse()` calling: %w", err)
	}
	c.SessionSigningKeys = splitNonEmpty(signingKeys)

	return nil
}

func (c *Config) clarifyShortURLBase() error {
	if !c.EnableHTTPS {
		return nil
	}

	parsed, err := url.Parse(c.ShortURLBase)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/clarifyShortURLBase(): error while `url.Parse()` calling: %w", err)
	}
	parsed.Scheme = "https"
	if parsed.Port() == "80" || parsed.Port() == "443" || parsed.Port() == "8080" {
		parsed.Host = parsed.Hostname()
	}
	c.ShortURLBase = parsed.String()

	return nil
}

func applyDefaults(c *Config, defaults Config) {
	if c.RunAddr == "" {
		c.RunAddr = defaults.RunAddr
	}
	if c.ShortURLBase == "" {
		c.ShortURLBase = defaults.ShortURLBase
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.DBFileName == "" {
		c.DBFileName = defaults.DBFileName
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = defaults.DatabaseDSN
	}
	if c.DBConnectionTimeout == 0 {
		c.DBConnectionTimeout = defaults.DBConnectionTimeout
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = defaults.SessionCookieName
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaults.SessionTTL
	}
	if c.PasswordHashCost == 0 {
		c.PasswordHashCost = defaults.PasswordHashCost
	}
	if c.ShortIDGenerationAttempts == 0 {
		c.ShortIDGenerationAttempts = defaults.ShortIDGenerationAttempts
	}
	if c.TLSCertFile == "" {
		c.TLSCertFile = defaults.TLSCertFile
	}
	if c.TLSKeyFile == "" {
		c.TLSKeyFile = defaults.TLSKeyFile
	}
	if c.GRPCAddr == "" {
		c.GRPCAddr = defaults.GRPCAddr
	}
	if c.TrustedSubnet == "" {
		c.TrustedSubnet = defaults.TrustedSubnet
	}
}

// lookupConfigFlag finds -c/--c before the full flag set is parsed, the file
// has to be read first so that flags can still override it.
func lookupConfigFlag(args []string) string {
	for i, arg := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "c" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}

	return ""
}

func splitNonEmpty(joined string) []string {
	return funk.FilterString(
		funk.Map(strings.Split(joined, ","), strings.TrimSpace).([]string),
		func(s string) bool { return s != "" },
	)
}
