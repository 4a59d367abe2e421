package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres, mysql or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig Web config
type WebConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Secret           string `yaml:"secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

// LogConfig Logger config
type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// ShopConfig business tunables
type ShopConfig struct {
	LowStockThreshold  int    `yaml:"low_stock_threshold"`
	DefaultBrand       string `yaml:"default_brand"`
	AuditRetentionDays int    `yaml:"audit_retention_days"`
}

// MailConfig daily report mail
type MailConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	To         []string `yaml:"to"`
	ReportCron string   `yaml:"report_cron"`
}

type AppConfig struct {
	System   SysConfig  `yaml:"system"`
	Web      WebConfig  `yaml:"web"`
	Database DBConfig   `yaml:"database"`
	Logger   LogConfig  `yaml:"logger"`
	Shop     ShopConfig `yaml:"shop"`
	Mail     MailConfig `yaml:"mail"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
}

// DefaultAppConfig returns the built-in configuration used when no file is given.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "BikeShop",
			Location: "Asia/Kolkata",
			Workdir:  "/var/bikeshop",
			Debug:    true,
		},
		Web: WebConfig{
			Host:             "0.0.0.0",
			Port:             5000,
			Secret:           "9b6de5cc-0731-4bf1-bd4d-6b3a5b42d7c1",
			TokenExpireHours: 24 * 7,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "bikeshop",
			User:     "postgres",
			Passwd:   "myroot",
			MaxConn:  100,
			IdleConn: 10,
			Debug:    false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/bikeshop/logs/bikeshop.log",
		},
		Shop: ShopConfig{
			LowStockThreshold:  5,
			DefaultBrand:       "TVS",
			AuditRetentionDays: 365,
		},
		Mail: MailConfig{
			Port:       587,
			ReportCron: "0 0 21 * * *",
		},
	}
}

// LoadConfig reads the yaml file (when present), then applies .env and environment overrides.
func LoadConfig(cfile string) *AppConfig {
	_ = godotenv.Load()

	cfg := DefaultAppConfig()
	if cfile == "" {
		cfile = "bikeshop.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			panic(fmt.Errorf("parse config %s: %w", cfile, err))
		}
	}

	applyEnv(cfg)
	cfg.normalize()
	cfg.initDirs()
	return cfg
}

func applyEnv(cfg *AppConfig) {
	setEnvValue("BIKESHOP_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvBoolValue("BIKESHOP_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("BIKESHOP_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("BIKESHOP_WEB_PORT", &cfg.Web.Port)
	setEnvValue("BIKESHOP_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("BIKESHOP_DB_TYPE", &cfg.Database.Type)
	setEnvValue("BIKESHOP_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("BIKESHOP_DB_PORT", &cfg.Database.Port)
	setEnvValue("BIKESHOP_DB_NAME", &cfg.Database.Name)
	setEnvValue("BIKESHOP_DB_USER", &cfg.Database.User)
	setEnvValue("BIKESHOP_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("BIKESHOP_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("BIKESHOP_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("BIKESHOP_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)

	setEnvBoolValue("BIKESHOP_MAIL_ENABLED", &cfg.Mail.Enabled)
	setEnvValue("BIKESHOP_MAIL_HOST", &cfg.Mail.Host)
	setEnvValue("BIKESHOP_MAIL_PASSWORD", &cfg.Mail.Password)
}

func (c *AppConfig) normalize() {
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	if c.Database.Type == "" {
		c.Database.Type = "postgres"
	}
	if c.Shop.LowStockThreshold <= 0 {
		c.Shop.LowStockThreshold = 5
	}
	if strings.TrimSpace(c.Shop.DefaultBrand) == "" {
		c.Shop.DefaultBrand = "TVS"
	}
	if c.Shop.AuditRetentionDays <= 0 {
		c.Shop.AuditRetentionDays = 365
	}
	if c.Web.TokenExpireHours <= 0 {
		c.Web.TokenExpireHours = 24
	}
}

func setEnvValue(name string, val *string) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	var evalue = os.Getenv(name)
	if evalue != "" {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	var evalue = os.Getenv(name)
	if evalue == "" {
		return
	}
	if p, err := cast.ToIntE(evalue); err == nil {
		*val = p
	}
}
