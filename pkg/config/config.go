package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Probes  ProbeConfig   `mapstructure:"probes"`
	Lexical LexicalConfig `mapstructure:"lexical"`
	Model   ModelConfig   `mapstructure:"model"`
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// ProbeConfig bounds every live network check.
type ProbeConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	DNSServer           string        `mapstructure:"dns_server"`
	DNSTimeout          time.Duration `mapstructure:"dns_timeout"`
	WhoisTimeout        time.Duration `mapstructure:"whois_timeout"`
	TLSTimeout          time.Duration `mapstructure:"tls_timeout"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	TotalBudget         time.Duration `mapstructure:"total_budget"`
	MaxBodyBytes        int64         `mapstructure:"max_body_bytes"`
	MaxRedirects        int           `mapstructure:"max_redirects"`
	BlockPrivateTargets bool          `mapstructure:"block_private_targets"`
	InsecureFetch       bool          `mapstructure:"insecure_fetch"`
	UserAgent           string        `mapstructure:"user_agent"`
}

// LexicalConfig holds the heuristic term lists.
type LexicalConfig struct {
	SuspiciousTokens []string `mapstructure:"suspicious_tokens"`
	Shorteners       []string `mapstructure:"shorteners"`
	AbusedTLDs       []string `mapstructure:"abused_tlds"`
}

type ModelConfig struct {
	Path             string  `mapstructure:"path"`
	LowThreshold     float64 `mapstructure:"low_threshold"`
	HighThreshold    float64 `mapstructure:"high_threshold"`
	TrainIfMissing   bool    `mapstructure:"train_if_missing"`
	Trees            int     `mapstructure:"trees"`
	MaxDepth         int     `mapstructure:"max_depth"`
	MinSamplesSplit  int     `mapstructure:"min_samples_split"`
	Seed             int64   `mapstructure:"seed"`
	SyntheticSamples int     `mapstructure:"synthetic_samples"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

// CacheConfig enables the optional Redis result cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
}

var DefaultSuspiciousTokens = []string{
	"login", "signin", "logon", "secure", "account", "update", "verify",
	"validate", "confirm", "password", "banking", "bank", "billing",
	"payment", "invoice", "webscr", "ebayisapi", "paypal", "suspended",
	"unlock", "recover", "reset", "authorize", "wallet", "support",
	"urgent", "limited", "free", "bonus", "winner",
}

var DefaultShorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd", "buff.ly",
	"adf.ly", "short.link", "tiny.cc", "lnkd.in", "youtu.be", "amzn.to",
	"fb.me", "po.st", "tinycc.com", "shorte.st", "linktr.ee", "cutt.ly",
	"rebrand.ly", "rb.gy",
}

var DefaultAbusedTLDs = []string{
	"tk", "ml", "ga", "cf", "gq", "xyz", "top", "zip", "mov", "work",
	"click", "country", "kim", "review", "loan", "men", "date", "rest",
	"cam", "buzz", "icu", "monster", "cyou",
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Probes: ProbeConfig{
			Enabled:             true,
			DNSServer:           "8.8.8.8:53",
			DNSTimeout:          3 * time.Second,
			WhoisTimeout:        5 * time.Second,
			TLSTimeout:          4 * time.Second,
			FetchTimeout:        8 * time.Second,
			TotalBudget:         12 * time.Second,
			MaxBodyBytes:        2 << 20,
			MaxRedirects:        5,
			BlockPrivateTargets: true,
			InsecureFetch:       true,
			UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		Lexical: LexicalConfig{
			SuspiciousTokens: append([]string(nil), DefaultSuspiciousTokens...),
			Shorteners:       append([]string(nil), DefaultShorteners...),
			AbusedTLDs:       append([]string(nil), DefaultAbusedTLDs...),
		},
		Model: ModelConfig{
			Path:             "url_classifier_model.json",
			LowThreshold:     0.40,
			HighThreshold:    0.70,
			TrainIfMissing:   false,
			Trees:            100,
			MaxDepth:         10,
			MinSamplesSplit:  2,
			Seed:             42,
			SyntheticSamples: 10000,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			RateLimit:    10,
			RateBurst:    20,
		},
		Cache: CacheConfig{
			TTL:         15 * time.Minute,
			DialTimeout: 2 * time.Second,
		},
	}
}

// Validate rejects settings the pipeline cannot honor.
func (c *Config) Validate() error {
	var errs []error

	m := c.Model
	if m.LowThreshold < 0 || m.HighThreshold > 1 || m.LowThreshold > m.HighThreshold {
		errs = append(errs, fmt.Errorf("model thresholds must satisfy 0 <= low <= high <= 1, got low=%v high=%v", m.LowThreshold, m.HighThreshold))
	}
	if m.Path == "" {
		errs = append(errs, errors.New("model.path is required"))
	}
	if m.Trees < 1 || m.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("model.trees and model.max_depth must be positive, got %d and %d", m.Trees, m.MaxDepth))
	}

	p := c.Probes
	for name, d := range map[string]time.Duration{
		"dns_timeout":   p.DNSTimeout,
		"whois_timeout": p.WhoisTimeout,
		"tls_timeout":   p.TLSTimeout,
		"fetch_timeout": p.FetchTimeout,
		"total_budget":  p.TotalBudget,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("probes.%s must be positive", name))
		}
	}
	if p.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("probes.max_body_bytes must be positive"))
	}
	if p.MaxRedirects < 0 {
		errs = append(errs, errors.New("probes.max_redirects must not be negative"))
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server rate limit settings must not be negative"))
	}

	return errors.Join(errs...)
}
