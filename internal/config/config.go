package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Quarantine  QuarantineConfig  `mapstructure:"quarantine"`
	Remediation RemediationConfig `mapstructure:"remediation"`
	Storage     StorageConfig     `mapstructure:"storage"`
	History     HistoryConfig     `mapstructure:"history"`
	Scan        ScanConfig        `mapstructure:"scan"`
	Log         LogConfig         `mapstructure:"log"`
}

type QuarantineConfig struct {
	Dir string `mapstructure:"dir"`
}

type RemediationConfig struct {
	Action string `mapstructure:"action"`
}

type StorageConfig struct {
	Database string `mapstructure:"database"`
}

type HistoryConfig struct {
	File       string `mapstructure:"file"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type ScanConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	ActionQuarantine = "quarantine"
	ActionDelete     = "delete"
)

var cfg *Config

func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "avscan"))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AVSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	viper.ReadInConfig()

	cfg = &Config{}
	viper.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("quarantine.dir", "./quarantine")
	v.SetDefault("remediation.action", ActionQuarantine)
	v.SetDefault("storage.database", "./data/avscan.db")
	v.SetDefault("history.file", "./logs/scan_history.log")
	v.SetDefault("history.max_entries", 1000)
	v.SetDefault("scan.batch_size", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func Get() *Config {
	if cfg == nil {
		InitConfig("")
	}
	return cfg
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.GetRemediationAction()) {
	case ActionQuarantine, ActionDelete:
	default:
		return fmt.Errorf("unknown remediation action %q. Use %q or %q", c.Remediation.Action, ActionQuarantine, ActionDelete)
	}
	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must not be negative")
	}
	if c.Scan.BatchSize < 0 {
		return fmt.Errorf("scan.batch_size must not be negative")
	}
	return nil
}

func (c *Config) GetQuarantineDir() string {
	if c.Quarantine.Dir != "" {
		return c.Quarantine.Dir
	}
	return "./quarantine"
}

func (c *Config) GetRemediationAction() string {
	if c.Remediation.Action != "" {
		return strings.ToLower(c.Remediation.Action)
	}
	return ActionQuarantine
}

func (c *Config) GetDatabase() string {
	if c.Storage.Database != "" {
		return c.Storage.Database
	}
	return "./data/avscan.db"
}

func (c *Config) GetHistoryFile() string {
	if c.History.File != "" {
		return c.History.File
	}
	return "./logs/scan_history.log"
}

func (c *Config) GetHistoryMaxEntries() int {
	if c.History.MaxEntries > 0 {
		return c.History.MaxEntries
	}
	return 1000
}

func (c *Config) GetBatchSize() int {
	if c.Scan.BatchSize > 0 {
		return c.Scan.BatchSize
	}
	return 100
}
