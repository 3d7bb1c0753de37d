package config

import (
	"strings"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/pkg/common"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	LogLevel string
	Google   GoogleConfig
	Amazon   AmazonConfig
	Transfer TransferConfig
}

// GoogleConfig holds the source-side OAuth credentials
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenPath    string
}

// AmazonConfig holds the destination-side OAuth credentials
type AmazonConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// TransferConfig holds the per-run transfer options
type TransferConfig struct {
	MaxPhotos   int
	BatchSize   int
	DownloadDir string
	ReportPath  string
	DryRun      bool
	SkipAlbums  bool
	Timeout     time.Duration
}

// New creates a new configuration with default values. Credentials and paths
// are filled in later from the environment and CLI flags.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Transfer: TransferConfig{
			Timeout: 30 * time.Minute,
		},
	}
}

// LoadEnv overlays environment variables onto the configuration. Fields
// already set (by CLI flags) take precedence over the environment.
func (c *Config) LoadEnv() error {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GOOGLE_TOKEN_PATH", "token.json")
	v.SetDefault("DOWNLOAD_DIR", "./downloads")
	v.SetDefault("TRANSFER_REPORT_PATH", "./transfer_report.json")
	v.SetDefault("MAX_PHOTOS_PER_BATCH", 50)

	setString(&c.Google.ClientID, v, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, v, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURI, v, "GOOGLE_REDIRECT_URI")
	setString(&c.Google.TokenPath, v, "GOOGLE_TOKEN_PATH")

	setString(&c.Amazon.ClientID, v, "AMAZON_CLIENT_ID")
	setString(&c.Amazon.ClientSecret, v, "AMAZON_CLIENT_SECRET")
	setString(&c.Amazon.RefreshToken, v, "AMAZON_REFRESH_TOKEN")

	setString(&c.Transfer.DownloadDir, v, "DOWNLOAD_DIR")
	setString(&c.Transfer.ReportPath, v, "TRANSFER_REPORT_PATH")
	if c.Transfer.BatchSize <= 0 {
		c.Transfer.BatchSize = v.GetInt("MAX_PHOTOS_PER_BATCH")
	}

	return nil
}

// Validate checks that the credentials required for a run are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Google.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if c.Google.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if c.Amazon.ClientID == "" {
		missing = append(missing, "AMAZON_CLIENT_ID")
	}
	if c.Amazon.ClientSecret == "" {
		missing = append(missing, "AMAZON_CLIENT_SECRET")
	}
	if c.Amazon.RefreshToken == "" {
		missing = append(missing, "AMAZON_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return common.NewConfigError("missing required settings: " + strings.Join(missing, ", "))
	}
	return nil
}

func setString(dst *string, v *viper.Viper, key string) {
	if *dst == "" {
		*dst = v.GetString(key)
	}
}
