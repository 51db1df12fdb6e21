package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davarch/deploy-pilot/internal/domain"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "deploy-pilot.yaml"

type Config struct {
	DMS struct {
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"-"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"dms"`

	Poll struct {
		InitialDelay   time.Duration `yaml:"initial_delay"`
		MaxDelay       time.Duration `yaml:"max_delay"`
		DefaultTimeout time.Duration `yaml:"default_timeout"`
	} `yaml:"poll"`

	Build struct {
		Command   []string `yaml:"command"`
		OutputDir string   `yaml:"output_dir"`
		Exclude   []string `yaml:"exclude"`
	} `yaml:"build"`

	Catalog struct {
		BuildNumber string `yaml:"build_number"`
	} `yaml:"catalog"`

	Presenter string `yaml:"presenter"`

	Report struct {
		Path string `yaml:"path"`
	} `yaml:"report"`

	Run struct {
		AbortFile string `yaml:"abort_file"`
	} `yaml:"run"`
}

// Load reads path (a missing file is fine), applies env overrides and
// defaults, then validates the result. An empty DMS base URL is left to the
// gateway, so argument errors are still reported without a config.
func Load(path string) (Config, error) {
	var c Config

	c.DMS.Timeout = 30 * time.Second
	c.Poll.InitialDelay = 5 * time.Second
	c.Poll.MaxDelay = time.Minute
	c.Poll.DefaultTimeout = time.Hour
	c.Build.OutputDir = ".deploy-pilot"
	c.Presenter = "auto"

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return c, err
		}
	}

	if v := os.Getenv("DMS_BASE_URL"); v != "" {
		c.DMS.BaseURL = v
	}

	c.DMS.APIKey = os.Getenv("DEPLOY_API_KEY")

	envDuration("DMS_TIMEOUT", &c.DMS.Timeout)
	envDuration("POLL_INITIAL_DELAY", &c.Poll.InitialDelay)
	envDuration("POLL_MAX_DELAY", &c.Poll.MaxDelay)
	envDuration("POLL_DEFAULT_TIMEOUT", &c.Poll.DefaultTimeout)

	if v := os.Getenv("PACKAGE_BUILD_NUMBER"); v != "" {
		c.Catalog.BuildNumber = v
	}

	if v := os.Getenv("PRESENTER"); v != "" {
		c.Presenter = v
	}

	if v := os.Getenv("REPORT_PATH"); v != "" {
		c.Report.Path = v
	}

	if v := os.Getenv("ABORT_FILE"); v != "" {
		c.Run.AbortFile = v
	}

	c.DMS.BaseURL = strings.TrimRight(c.DMS.BaseURL, "/")
	c.Presenter = strings.ToLower(strings.TrimSpace(c.Presenter))

	if c.DMS.Timeout <= 0 {
		c.DMS.Timeout = 30 * time.Second
	}

	if c.Poll.InitialDelay <= 0 || c.Poll.MaxDelay <= 0 {
		return c, errors.New("poll delays must be positive")
	}

	if c.Poll.MaxDelay < c.Poll.InitialDelay {
		return c, fmt.Errorf("poll.max_delay %s is below poll.initial_delay %s", c.Poll.MaxDelay, c.Poll.InitialDelay)
	}

	if c.Poll.DefaultTimeout < domain.MinTimeout || c.Poll.DefaultTimeout > domain.MaxTimeout {
		return c, fmt.Errorf("poll.default_timeout %s is outside %s..%s", c.Poll.DefaultTimeout, domain.MinTimeout, domain.MaxTimeout)
	}

	switch c.Presenter {
	case "auto", "console", "github", "azure":
	default:
		return c, fmt.Errorf("unknown presenter %q", c.Presenter)
	}

	return c, nil
}

// PathFromEnv returns DEPLOY_PILOT_CONFIG or the default path.
func PathFromEnv() string {
	return getenv("DEPLOY_PILOT_CONFIG", DefaultPath)
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
