// config/config.go
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DownloadConfig struct {
	// BaseURL is the file storage root, e.g.
	// https://libertaciviliimmigrazione.dlci.interno.gov.it/sites/default/files
	BaseURL string `yaml:"base_url"`
	// Domain is the site root, used to complete relative override URLs
	// and to reach the archive listing page.
	Domain      string `yaml:"domain"`
	ArchivePage string `yaml:"archive_page"`

	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
	Timeout        time.Duration
}

type PathsConfig struct {
	PDFDir    string `yaml:"pdf_dir"`
	OutputDir string `yaml:"output_dir"`
}

type ExtractionConfig struct {
	DefaultStartYear  int `yaml:"default_start_year"`
	DefaultStartMonth int `yaml:"default_start_month"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Download   DownloadConfig   `yaml:"download"`
	Paths      PathsConfig      `yaml:"paths"`
	Extraction ExtractionConfig `yaml:"extraction"`
}

var AppConfig Config

//go:embed overrides.yaml
var overridesYAML []byte

// Period identifies one monthly report.
type Period struct {
	Year  int
	Month int
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// LoadConfig reads configuration from the YAML file, applies .env /
// environment overrides, and creates the working directories.
func LoadConfig(configPath string) error {
	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &AppConfig); err != nil {
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyDefaults(&AppConfig)

	if v := os.Getenv("CRUSCOTTO_BASE_URL"); v != "" {
		AppConfig.Download.BaseURL = v
	}
	if v := os.Getenv("CRUSCOTTO_DOMAIN"); v != "" {
		AppConfig.Download.Domain = v
	}
	if v := os.Getenv("CRUSCOTTO_PDF_DIR"); v != "" {
		AppConfig.Paths.PDFDir = v
	}
	if v := os.Getenv("CRUSCOTTO_OUTPUT_DIR"); v != "" {
		AppConfig.Paths.OutputDir = v
	}
	if v := os.Getenv("CRUSCOTTO_PORT"); v != "" {
		AppConfig.Server.Port = v
	}

	AppConfig.Download.Timeout = time.Duration(AppConfig.Download.TimeoutSeconds) * time.Second

	for _, dir := range []string{AppConfig.Paths.PDFDir, AppConfig.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Download.BaseURL == "" {
		c.Download.BaseURL = "https://libertaciviliimmigrazione.dlci.interno.gov.it/sites/default/files"
	}
	if c.Download.Domain == "" {
		c.Download.Domain = "https://libertaciviliimmigrazione.dlci.interno.gov.it"
	}
	if c.Download.ArchivePage == "" {
		c.Download.ArchivePage = c.Download.Domain + "/it/documentazione/statistica/cruscotto-statistico-giornaliero"
	}
	if c.Download.MaxRetries == 0 {
		c.Download.MaxRetries = 3
	}
	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = 30
	}
	if c.Paths.PDFDir == "" {
		c.Paths.PDFDir = filepath.Join(".", "pdf")
	}
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = filepath.Join(".", "output")
	}
	if c.Extraction.DefaultStartYear == 0 {
		c.Extraction.DefaultStartYear = 2017
	}
	if c.Extraction.DefaultStartMonth == 0 {
		c.Extraction.DefaultStartMonth = 1
	}
}

// URLOverrides returns the table of historically-irregular report URLs,
// keyed by period. These files never followed any deducible naming rule
// (different separators, stray suffixes, manual re-uploads), so the exact
// relative paths are shipped as data and handed to the downloader.
func URLOverrides() (map[Period]string, error) {
	var raw struct {
		Overrides []struct {
			Year  int    `yaml:"year"`
			Month int    `yaml:"month"`
			URL   string `yaml:"url"`
		} `yaml:"overrides"`
	}
	if err := yaml.Unmarshal(overridesYAML, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal URL overrides: %w", err)
	}

	overrides := make(map[Period]string, len(raw.Overrides))
	for _, o := range raw.Overrides {
		overrides[Period{Year: o.Year, Month: o.Month}] = o.URL
	}
	return overrides, nil
}
