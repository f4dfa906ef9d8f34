package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/logging"
	"github.com/JeffersonLab/mya-getter/internal/mya"

	"gopkg.in/yaml.v3"
)

func LoadConfig(filepath string) (*BatchConfig, error) {
	logger := logging.GetLogger()

	data, err := os.ReadFile(filepath)
	if err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to read config file")
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var config BatchConfig
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		logger.WithField("filepath", filepath).WithError(err).Error("Failed to parse config file")
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}

func validateConfig(config *BatchConfig) error {
	switch config.Subcommand {
	case SubcommandMySampler, SubcommandMyData:
	default:
		return fmt.Errorf("unrecognized subcommand %q, valid subcommands = [%s %s]",
			config.Subcommand, SubcommandMySampler, SubcommandMyData)
	}

	if len(config.Queries) == 0 {
		return fmt.Errorf("config defines no queries")
	}
	if config.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must be positive, got %d", config.MaxWorkers)
	}

	for i, group := range config.Queries {
		if len(group.PVList) == 0 {
			return fmt.Errorf("query group %d has an empty pvlist", i)
		}
		if len(group.Periods) == 0 {
			return fmt.Errorf("query group %d has no periods", i)
		}
		for j, period := range group.Periods {
			if err := validatePeriod(config.Subcommand, period); err != nil {
				return fmt.Errorf("query group %d period %d: %w", i, j, err)
			}
		}
	}
	return nil
}

func validatePeriod(subcommand string, period Period) error {
	switch subcommand {
	case SubcommandMySampler:
		if _, err := time.Parse(mya.DateTimeLayout, period.Start); err != nil {
			return fmt.Errorf("invalid start %q, want %q format", period.Start, mya.DateTimeLayout)
		}
		if period.NumSamples <= 0 {
			return fmt.Errorf("num_samples must be positive, got %d", period.NumSamples)
		}
		if _, err := (mya.MySamplerQuery{Interval: period.Interval}).IntervalDuration(); err != nil {
			return err
		}
	case SubcommandMyData:
		begin, err := time.Parse(mya.DateTimeLayout, period.Begin)
		if err != nil {
			return fmt.Errorf("invalid begin %q, want %q format", period.Begin, mya.DateTimeLayout)
		}
		end, err := time.Parse(mya.DateTimeLayout, period.End)
		if err != nil {
			return fmt.Errorf("invalid end %q, want %q format", period.End, mya.DateTimeLayout)
		}
		if !end.After(begin) {
			return fmt.Errorf("end %q is not after begin %q", period.End, period.Begin)
		}
	}
	return nil
}
