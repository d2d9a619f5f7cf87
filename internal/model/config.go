package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// TokenConfig controls correlation token generation and matching.
type TokenConfig struct {
	// Prefix is prepended to the 8-character random suffix and matched
	// case-insensitively in inbound mail.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

// SendConfig holds outbound sending settings.
type SendConfig struct {
	SubjectBase string `mapstructure:"subject_base" yaml:"subject_base"`
	DefaultCC   string `mapstructure:"default_cc" yaml:"default_cc"`

	// ThrottleMS is the mandatory delay between sends in a bulk batch.
	ThrottleMS int `mapstructure:"throttle_ms" yaml:"throttle_ms"`

	// SentFolder is the mailbox searched when resolving identifiers of a
	// just-sent message; SentLookback bounds how many recent items are
	// inspected.
	SentFolder   string `mapstructure:"sent_folder" yaml:"sent_folder"`
	SentLookback int    `mapstructure:"sent_lookback" yaml:"sent_lookback"`

	TemplatePath string `mapstructure:"template_path" yaml:"template_path"`

	// AttachFiles are fixed files attached to every outgoing message.
	// Missing files are skipped, they never abort a send.
	AttachFiles []string `mapstructure:"attach_files" yaml:"attach_files"`
}

// PollConfig holds inbox scanning settings.
type PollConfig struct {
	// Folders lists mailbox paths to scan ("Inbox", "Inbox/External", ...).
	// Empty means every store's inbox plus its immediate subfolders.
	Folders []string `mapstructure:"folders" yaml:"folders"`

	MaxScan int `mapstructure:"max_scan" yaml:"max_scan"`

	// LookbackMinutes is advisory; enumeration is bounded by MaxScan.
	LookbackMinutes int `mapstructure:"lookback_minutes" yaml:"lookback_minutes"`

	MaxBodyChars int `mapstructure:"max_body_chars" yaml:"max_body_chars"`
}

// AttachmentConfig governs the capture pipeline.
type AttachmentConfig struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`

	// MaxSizeMB caps a single saved attachment; 0 means unlimited.
	// Oversized attachments are still recorded, just not written to disk.
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// MailConfig holds the IMAP/SMTP endpoints of the mailbox the engine
// drives. The password is looked up in the system keyring under
// CredentialKey, never stored in the config file.
type MailConfig struct {
	IMAPHost      string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort      string `mapstructure:"imap_port" yaml:"imap_port"`
	SMTPHost      string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort      string `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username      string `mapstructure:"username" yaml:"username"`
	TLS           bool   `mapstructure:"tls" yaml:"tls"`
	CredentialKey string `mapstructure:"credential_key" yaml:"credential_key"`
}

// BedrockConfig holds settings for the bid-comparison model call.
type BedrockConfig struct {
	Region         string `mapstructure:"region" yaml:"region"`
	ModelID        string `mapstructure:"model_id" yaml:"model_id"`
	MaxTokens      int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxPromptChars int    `mapstructure:"max_prompt_chars" yaml:"max_prompt_chars"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	DBPath      string           `mapstructure:"db_path" yaml:"db_path"`
	Token       TokenConfig      `mapstructure:"token" yaml:"token"`
	Send        SendConfig       `mapstructure:"send" yaml:"send"`
	Poll        PollConfig       `mapstructure:"poll" yaml:"poll"`
	Attachments AttachmentConfig `mapstructure:"attachments" yaml:"attachments"`
	Mail        MailConfig       `mapstructure:"mail" yaml:"mail"`
	Bedrock     BedrockConfig    `mapstructure:"bedrock" yaml:"bedrock"`
	Logging     LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// DefaultConfigPath returns the default location of the configuration
// file, ~/.config/outreach/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "outreach", "config.yaml")
}

// setDefaults applies default values for every key so a sparse (or
// missing) config file still yields a usable configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "outreach.db")

	v.SetDefault("token.prefix", "ABA#")

	v.SetDefault("send.subject_base", "Invitation to Partner")
	v.SetDefault("send.default_cc", "")
	v.SetDefault("send.throttle_ms", 800)
	v.SetDefault("send.sent_folder", "Sent")
	v.SetDefault("send.sent_lookback", 50)
	v.SetDefault("send.template_path", "templates/email_template.html")
	v.SetDefault("send.attach_files", []string{})

	v.SetDefault("poll.folders", []string{})
	v.SetDefault("poll.max_scan", 400)
	v.SetDefault("poll.lookback_minutes", 7*24*60)
	v.SetDefault("poll.max_body_chars", 100000)

	v.SetDefault("attachments.base_dir", "attachments")
	v.SetDefault("attachments.max_size_mb", 50)

	v.SetDefault("mail.imap_port", "993")
	v.SetDefault("mail.smtp_port", "465")
	v.SetDefault("mail.tls", true)
	v.SetDefault("mail.credential_key", "mailbox-password")

	v.SetDefault("bedrock.region", "us-east-2")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("bedrock.max_tokens", 4096)
	v.SetDefault("bedrock.max_prompt_chars", 120000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
