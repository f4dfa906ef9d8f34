package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/config"
	"github.com/JeffersonLab/mya-getter/internal/database"
	"github.com/JeffersonLab/mya-getter/internal/dataframe"
	"github.com/JeffersonLab/mya-getter/internal/logging"
	"github.com/JeffersonLab/mya-getter/internal/mya"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "1.0.0"

// begin times are accepted in ISO-ish forms, date-only included.
var beginLayouts = []string{
	mya.DateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseBegin(s string) (time.Time, error) {
	var err error
	for _, layout := range beginLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid begin time %q: %w", s, err)
}

func loadEnvironment() {
	logger := logging.GetLogger()

	// Try to load .env file from current directory
	envFile := ".env"
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
		} else {
			logger.WithField("file", envFile).Debug("Loaded environment variables")
		}
	} else {
		// Try to load from the application directory
		if execPath, err := os.Executable(); err == nil {
			appDir := filepath.Dir(execPath)
			envFile = filepath.Join(appDir, ".env")
			if _, err := os.Stat(envFile); err == nil {
				if err := godotenv.Load(envFile); err != nil {
					logger.WithField("file", envFile).WithError(err).Warn("Error loading .env file")
				} else {
					logger.WithField("file", envFile).Debug("Loaded environment variables")
				}
			}
		}
	}
}

// readPVFile reads a PV list file, one PV per line, blank lines ignored.
func readPVFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pvs []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			pvs = append(pvs, line)
		}
	}
	if len(pvs) == 0 {
		return nil, fmt.Errorf("PV file %s names no PVs", path)
	}
	return pvs, nil
}

func resolvePVs(pvList []string, pvFile string) ([]string, error) {
	if pvFile != "" {
		return readPVFile(pvFile)
	}
	return pvList, nil
}

func writeCombinedCSV(path string, combined *dataframe.CombinedTable) error {
	logger := logging.GetLogger()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := combined.WriteCSV(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logger.WithField("file", path).WithField("rows", combined.NumRows()).Info("Wrote combined CSV")
	return nil
}

func exportToInflux(ctx context.Context, combined *dataframe.CombinedTable) error {
	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		return err
	}
	client, err := database.NewInfluxDBClient(dbConfig)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.WriteCombinedTable(ctx, combined)
}

func finishBatch(ctx context.Context, combined *dataframe.CombinedTable, outputFile string, influx bool) error {
	if err := writeCombinedCSV(outputFile, combined); err != nil {
		return err
	}
	if influx {
		return exportToInflux(ctx, combined)
	}
	return nil
}

func mySamplerExecutor(web bool) mya.Executor[mya.MySamplerQuery] {
	if web {
		client := &mya.WebClient{URL: os.Getenv("MYQUERY_URL")}
		return client.MySampler
	}
	cli := &mya.MySamplerCLI{Path: os.Getenv("MYSAMPLER_CMD")}
	return cli.Run
}

func runConfigBatch(ctx context.Context, configFile, outputFile string, influx bool) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if cfg.LogLevel != "" {
		if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}

	var combined *dataframe.CombinedTable
	switch cfg.Subcommand {
	case config.SubcommandMySampler:
		queries, err := cfg.MySamplerQueries()
		if err != nil {
			return err
		}
		combined, err = mya.RunParallel(ctx, queries, mySamplerExecutor(false), cfg.MaxWorkers)
		if err != nil {
			return err
		}
	case config.SubcommandMyData:
		queries, err := cfg.MyDataQueries()
		if err != nil {
			return err
		}
		cli := &mya.MyDataCLI{Path: os.Getenv("MYDATA_CMD")}
		combined, err = mya.RunParallel(ctx, queries, cli.Run, cfg.MaxWorkers)
		if err != nil {
			return err
		}
	}
	return finishBatch(ctx, combined, outputFile, influx)
}

func main() {
	logger := logging.GetLogger()
	loadEnvironment()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		logLevel   string
		outputFile string
		pvList     []string
		pvFile     string
		begin      string
		maxWorkers int
		influx     bool

		numSamples     int
		sampleInterval string
		queryInterval  int
		numQueries     int
		deployment     string
		web            bool

		duration int
	)

	rootCmd := &cobra.Command{
		Use:     "mya-getter",
		Short:   "Run repeated MYA archive queries in parallel",
		Long:    "A tool for making multiple calls to the MYA archive utilities in parallel. The user specifies multiple queries that follow a similar pattern, e.g. ten minutes of data at one second intervals once every hour starting on a given date.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")

	mySamplerCmd := &cobra.Command{
		Use:   "mysampler",
		Short: "Run mySampler on a set of queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			beginTime, err := parseBegin(begin)
			if err != nil {
				return err
			}
			pvs, err := resolvePVs(pvList, pvFile)
			if err != nil {
				return err
			}
			queries := mya.GenerateMySamplerQueries(beginTime, numSamples, sampleInterval,
				time.Duration(queryInterval)*time.Second, numQueries, pvs, deployment)
			combined, err := mya.RunParallel(ctx, queries, mySamplerExecutor(web), maxWorkers)
			if err != nil {
				return err
			}
			return finishBatch(ctx, combined, outputFile, influx)
		},
	}

	myDataCmd := &cobra.Command{
		Use:   "mydata",
		Short: "Run myData on a set of queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			beginTime, err := parseBegin(begin)
			if err != nil {
				return err
			}
			pvs, err := resolvePVs(pvList, pvFile)
			if err != nil {
				return err
			}
			queries := mya.GenerateMyDataQueries(beginTime, time.Duration(duration)*time.Second,
				time.Duration(queryInterval)*time.Second, numQueries, pvs)
			cli := &mya.MyDataCLI{Path: os.Getenv("MYDATA_CMD")}
			combined, err := mya.RunParallel(ctx, queries, cli.Run, maxWorkers)
			if err != nil {
				return err
			}
			return finishBatch(ctx, combined, outputFile, influx)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config <file>",
		Short: "State what to query in a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigBatch(ctx, args[0], outputFile, influx)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a query config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadConfig(args[0]); err != nil {
				logger.WithField("config_file", args[0]).WithError(err).Error("Configuration validation failed")
				return err
			}
			logger.WithField("config_file", args[0]).Info("Configuration is valid")
			return nil
		},
	}

	for _, cmd := range []*cobra.Command{mySamplerCmd, myDataCmd} {
		cmd.Flags().StringVarP(&begin, "begin", "b", "", "The start time from which all queries are offset")
		cmd.Flags().IntVarP(&queryInterval, "query-interval", "q", 0, "The time between the start of successive queries in seconds")
		cmd.Flags().IntVar(&numQueries, "num-queries", 0, "The number of queries to make, each spaced --query-interval from the last")
		cmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "File where output is saved")
		cmd.Flags().StringSliceVarP(&pvList, "pv-list", "p", nil, "Comma-separated list of PVs to sample")
		cmd.Flags().StringVarP(&pvFile, "pv-file", "f", "", "Path to file containing PVs to sample, one PV per line")
		cmd.Flags().IntVar(&maxWorkers, "max-workers", mya.DefaultMaxWorkers, "Maximum number of concurrent queries")
		cmd.Flags().BoolVar(&influx, "influx", false, "Also export the combined samples to InfluxDB (INFLUXDB_* env)")
		cmd.MarkFlagRequired("begin")
		cmd.MarkFlagRequired("query-interval")
		cmd.MarkFlagRequired("num-queries")
		cmd.MarkFlagRequired("output-file")
		cmd.MarkFlagsOneRequired("pv-list", "pv-file")
		cmd.MarkFlagsMutuallyExclusive("pv-list", "pv-file")
	}

	mySamplerCmd.Flags().IntVarP(&numSamples, "num-samples", "n", 0, "The number of samples for each query")
	mySamplerCmd.Flags().StringVarP(&sampleInterval, "sample-interval", "i", "", "The interval between samples in mySampler terms, e.g. \"1s\"")
	mySamplerCmd.Flags().StringVar(&deployment, "deployment", "", "MYA deployment to query, e.g. \"history\"")
	mySamplerCmd.Flags().BoolVar(&web, "web", false, "Query the myquery web service instead of the mySampler CLI")
	mySamplerCmd.MarkFlagRequired("num-samples")
	mySamplerCmd.MarkFlagRequired("sample-interval")

	myDataCmd.Flags().IntVarP(&duration, "duration", "d", 0, "The duration in seconds of each query, end = begin + duration")
	myDataCmd.MarkFlagRequired("duration")

	configCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "File where output is saved")
	configCmd.Flags().BoolVar(&influx, "influx", false, "Also export the combined samples to InfluxDB (INFLUXDB_* env)")
	configCmd.MarkFlagRequired("output-file")

	rootCmd.AddCommand(mySamplerCmd)
	rootCmd.AddCommand(myDataCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.WithError(err).Fatal("Command execution failed")
	}
}
