package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/ini.v1"
)

// DefaultConfigPath is the default config path.
const DefaultConfigPath = "/etc/ivw.yaml"

// configSearchPaths lists config file paths to try, in priority order.
var configSearchPaths = []string{
	"./ivw.yaml",
	"/etc/ivw.yaml",
	"/etc/ivw.conf", // legacy INI / .env style
}

// FindConfigPath returns the first existing config file from the search paths.
// If none exist, it returns DefaultConfigPath (which will fail with a clear error).
func FindConfigPath() string {
	for _, path := range configSearchPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return DefaultConfigPath
}

// Config holds all configuration values for the workflow toolkit.
type Config struct {
	InsightVM InsightVMConfig `koanf:"insightvm"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
	Email     EmailConfig     `koanf:"email"`
	Inventory InventoryConfig `koanf:"inventory"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// InsightVMConfig holds InsightVM console connection settings.
type InsightVMConfig struct {
	Host      string `koanf:"host"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	VerifySSL bool   `koanf:"verify_ssl"`
	Timeout   int    `koanf:"timeout"`
}

// WorkflowConfig holds settings for the scheduled report workflow.
type WorkflowConfig struct {
	WaitTime     int    `koanf:"wait_time"` // seconds to wait after triggering generation
	EmailDomain  string `koanf:"email_domain"`
	Owner        string `koanf:"owner"` // receives failure notifications
	DownloadPath string `koanf:"download_path"`
	ArchivePath  string `koanf:"archive_path"`
	SchedulePath string `koanf:"schedule_path"`
	CounterPath  string `koanf:"counter_path"`
	LogDir       string `koanf:"log_dir"`
}

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	UseTLS   bool   `koanf:"use_tls"`
}

// InventoryConfig holds settings for software inventory exports.
type InventoryConfig struct {
	SiteID           int `koanf:"site_id"`
	PageSize         int `koanf:"page_size"`
	SoftwarePageSize int `koanf:"software_page_size"`
	SoftwareMaxPages int `koanf:"software_max_pages"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// DefaultConfig returns a Config with default values.
// VerifySSL defaults to false: most InsightVM consoles run with a
// self-signed certificate, matching the original deployment.
func DefaultConfig() *Config {
	return &Config{
		InsightVM: InsightVMConfig{
			VerifySSL: false,
			Timeout:   60,
		},
		Workflow: WorkflowConfig{
			WaitTime:     120,
			DownloadPath: "./reports",
			ArchivePath:  "./archives",
			SchedulePath: "./workflow_schedule.yaml",
			CounterPath:  "./schedule_process.txt",
			LogDir:       "./logs",
		},
		Email: EmailConfig{
			Port:   587,
			UseTLS: true,
		},
		Inventory: InventoryConfig{
			SiteID:           2,
			PageSize:         500,
			SoftwarePageSize: 200,
			SoftwareMaxPages: 2,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration from a file, auto-detecting format by extension.
// .yaml/.yml → YAML (Koanf), .conf/.env or anything else → legacy INI.
// Environment variables (IVW_ prefix) always override file values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		// .conf, .env, or no extension → try INI (backwards compat)
		return loadINI(path)
	}
}

// loadYAML loads config from a YAML file with Koanf.
func loadYAML(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

// loadINI loads config from a legacy flat key=value file (backwards
// compatible with the original Python .env layout).
func loadINI(path string) (*Config, error) {
	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse INI config file: %w", err)
	}

	m, warnings := iniToMap(iniFile)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", w)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load INI values: %w", err)
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	return unmarshalAndValidate(k)
}

// iniKeyMap maps legacy key names (lowercased, no separators) to koanf key
// paths. The legacy names are the env-var names the original Python tool read
// from its .env file.
var iniKeyMap = map[string]string{
	"insightvmhost":     "insightvm.host",
	"username":          "insightvm.username",
	"password":          "insightvm.password",
	"verifyssl":         "insightvm.verify_ssl",
	"timeout":           "insightvm.timeout",
	"waittime":          "workflow.wait_time",
	"emaildomain":       "workflow.email_domain",
	"workflowowner":     "workflow.owner",
	"downloadpath":      "workflow.download_path",
	"archivepath":       "workflow.archive_path",
	"schedulepath":      "workflow.schedule_path",
	"counterpath":       "workflow.counter_path",
	"logdir":            "workflow.log_dir",
	"emailhost":         "email.host",
	"emailport":         "email.port",
	"emailhostuser":     "email.username",
	"emailhostpassword": "email.password",
	"emailusetls":       "email.use_tls",
	"siteid":            "inventory.site_id",
	"pagesize":          "inventory.page_size",
	"softwarepagesize":  "inventory.software_page_size",
	"softwaremaxpages":  "inventory.software_max_pages",
}

// legacyINIKeys lists Python-era keys that are recognized but have no Go
// equivalent. They produce a specific warning instead of "unrecognized".
var legacyINIKeys = map[string]bool{
	"emailcc": true, // CC is per schedule entry now, not global
}

// iniToMap maps legacy key names to the nested koanf key namespace.
// It returns the mapped values and a slice of warnings for unrecognized keys.
func iniToMap(f *ini.File) (map[string]interface{}, []string) {
	m := make(map[string]interface{})
	var warnings []string

	for _, section := range f.Sections() {
		for _, key := range section.Keys() {
			normalised := strings.ToLower(strings.ReplaceAll(key.Name(), "_", ""))
			if koanfKey, ok := iniKeyMap[normalised]; ok {
				m[koanfKey] = key.Value()
			} else if legacyINIKeys[normalised] {
				warnings = append(warnings, fmt.Sprintf("Python-only key %s is not supported in the Go version (skipped)", key.Name()))
			} else if section.Name() != "DEFAULT" || key.Name() != "" {
				warnings = append(warnings, fmt.Sprintf("unrecognized config key %s (skipped)", key.Name()))
			}
		}
	}

	return m, warnings
}

// --- helpers ---

func loadDefaults(k *koanf.Koanf) error {
	defaults := DefaultConfig()
	return k.Load(confmap.Provider(map[string]interface{}{
		"insightvm.verify_ssl":         defaults.InsightVM.VerifySSL,
		"insightvm.timeout":            defaults.InsightVM.Timeout,
		"workflow.wait_time":           defaults.Workflow.WaitTime,
		"workflow.download_path":       defaults.Workflow.DownloadPath,
		"workflow.archive_path":        defaults.Workflow.ArchivePath,
		"workflow.schedule_path":       defaults.Workflow.SchedulePath,
		"workflow.counter_path":        defaults.Workflow.CounterPath,
		"workflow.log_dir":             defaults.Workflow.LogDir,
		"email.port":                   defaults.Email.Port,
		"email.use_tls":                defaults.Email.UseTLS,
		"inventory.site_id":            defaults.Inventory.SiteID,
		"inventory.page_size":          defaults.Inventory.PageSize,
		"inventory.software_page_size": defaults.Inventory.SoftwarePageSize,
		"inventory.software_max_pages": defaults.Inventory.SoftwareMaxPages,
		"telemetry.enabled":            defaults.Telemetry.Enabled,
	}, "."), nil)
}

func loadEnvOverrides(k *koanf.Koanf) error {
	// IVW_INSIGHTVM_HOST → insightvm.host
	return k.Load(env.Provider("IVW_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "IVW_")
		s = strings.ToLower(s)
		if idx := strings.Index(s, "_"); idx >= 0 {
			return s[:idx] + "." + s[idx+1:]
		}
		return s
	}), nil)
}

func unmarshalAndValidate(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that console connection fields are set and values are in
// range. It does NOT require email settings — those are only needed for
// commands that send mail and are validated by ValidateEmail().
func (c *Config) Validate() error {
	var errs []error

	if c.InsightVM.Host == "" {
		errs = append(errs, fmt.Errorf("insightvm.host is required"))
	} else {
		u, err := url.Parse(c.InsightVM.Host)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("insightvm.host must be a valid URL with scheme and host"))
		}
	}
	if c.InsightVM.Username == "" {
		errs = append(errs, fmt.Errorf("insightvm.username is required"))
	}
	if c.InsightVM.Password == "" {
		errs = append(errs, fmt.Errorf("insightvm.password is required"))
	}

	if c.InsightVM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("insightvm.timeout must be greater than 0, got %d", c.InsightVM.Timeout))
	}
	if c.Workflow.WaitTime < 0 {
		errs = append(errs, fmt.Errorf("workflow.wait_time must be >= 0, got %d", c.Workflow.WaitTime))
	}
	if c.Inventory.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("inventory.page_size must be greater than 0, got %d", c.Inventory.PageSize))
	}
	if c.Inventory.SoftwarePageSize <= 0 {
		errs = append(errs, fmt.Errorf("inventory.software_page_size must be greater than 0, got %d", c.Inventory.SoftwarePageSize))
	}

	return errors.Join(errs...)
}

// ValidateEmail checks that SMTP settings and the receiver domain suffix are
// set. Call this in commands that send mail (auto, check).
func (c *Config) ValidateEmail() error {
	var errs []error

	if c.Email.Host == "" {
		errs = append(errs, fmt.Errorf("email.host is required (set in config file or IVW_EMAIL_HOST env var)"))
	}
	if c.Email.Port < 1 || c.Email.Port > 65535 {
		errs = append(errs, fmt.Errorf("email.port must be between 1 and 65535, got %d", c.Email.Port))
	}
	if c.Workflow.EmailDomain == "" {
		errs = append(errs, fmt.Errorf("workflow.email_domain is required"))
	} else if !strings.HasPrefix(c.Workflow.EmailDomain, "@") {
		errs = append(errs, fmt.Errorf("workflow.email_domain must start with '@', got %q", c.Workflow.EmailDomain))
	}

	return errors.Join(errs...)
}

// APIBaseURL returns the InsightVM v3 API base URL.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.InsightVM.Host, "/") + "/api/3"
}
