package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zacy-Sokach/crmassist/internal/utils"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL         = "http://localhost:8001"
	DefaultTimeoutSeconds = 60
	DefaultRetryDelayMS   = 500
	DefaultLogLevel       = "info"
)

type Config struct {
	APIURL         string      `yaml:"api_url" env:"CRMASSIST_API_URL"`
	TimeoutSeconds int         `yaml:"timeout_seconds" env:"CRMASSIST_TIMEOUT_SECONDS"`
	Retry          RetryConfig `yaml:"retry"`
	Log            LogConfig   `yaml:"log"`
}

type RetryConfig struct {
	MaxRetries     int `yaml:"max_retries" env:"CRMASSIST_MAX_RETRIES"`
	InitialDelayMS int `yaml:"initial_delay_ms" env:"CRMASSIST_RETRY_DELAY_MS"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"CRMASSIST_LOG_LEVEL"`
	File  string `yaml:"file" env:"CRMASSIST_LOG_FILE"`
}

// DefaultConfig 返回未配置时使用的默认值
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig 读取配置文件，文件不存在时使用默认值，最后应用环境变量覆盖
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(configPath)
}

// Load 从指定路径读取配置
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// 没有配置文件，全部使用默认值
	case err != nil:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Retry.InitialDelayMS == 0 {
		c.Retry.InitialDelayMS = DefaultRetryDelayMS
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File == "" {
		if dir, err := utils.GetConfigDir(); err == nil {
			c.Log.File = filepath.Join(dir, "crmassist.log")
		}
	}
}

// Validate 检查配置值是否可用
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url 无效: %q", c.APIURL)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds 不能为负数: %d", c.TimeoutSeconds)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries 不能为负数: %d", c.Retry.MaxRetries)
	}
	if c.Retry.InitialDelayMS < 0 {
		return fmt.Errorf("retry.initial_delay_ms 不能为负数: %d", c.Retry.InitialDelayMS)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level 无效: %q", c.Log.Level)
	}
	return nil
}

// Timeout 单次请求的超时时间
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryPolicy 转换成 HTTP 重试配置
func (c *Config) RetryPolicy() *utils.RetryConfig {
	policy := utils.DefaultRetryConfig()
	policy.MaxRetries = c.Retry.MaxRetries
	policy.InitialDelay = time.Duration(c.Retry.InitialDelayMS) * time.Millisecond
	return policy
}

func SaveConfig(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// Path 返回配置文件路径
func Path() (string, error) {
	return getConfigPath()
}

func getConfigPath() (string, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
