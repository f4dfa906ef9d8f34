package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
	"github.com/JeffersonLab/mya-getter/internal/logging"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

// Measurement name for archived samples exported to InfluxDB.
const Measurement = "mya_samples"

// DatabaseConfig selects the InfluxDB instance the sink writes to.
type DatabaseConfig struct {
	Host   string
	Token  string
	Org    string
	Bucket string
}

// ConfigFromEnv reads the INFLUXDB_* variables, typically loaded from a
// .env file.
func ConfigFromEnv() (DatabaseConfig, error) {
	config := DatabaseConfig{
		Host:   os.Getenv("INFLUXDB_HOST"),
		Token:  os.Getenv("INFLUXDB_TOKEN"),
		Org:    os.Getenv("INFLUXDB_ORG"),
		Bucket: os.Getenv("INFLUXDB_BUCKET"),
	}
	var missing []string
	if config.Host == "" {
		missing = append(missing, "INFLUXDB_HOST")
	}
	if config.Token == "" {
		missing = append(missing, "INFLUXDB_TOKEN")
	}
	if config.Org == "" {
		missing = append(missing, "INFLUXDB_ORG")
	}
	if config.Bucket == "" {
		missing = append(missing, "INFLUXDB_BUCKET")
	}
	if len(missing) > 0 {
		return config, fmt.Errorf("missing required environment variables: %v", missing)
	}
	return config, nil
}

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	org      string
}

func NewInfluxDBClient(config DatabaseConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(config.Host, config.Token)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		logger.WithField("host", config.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, err
	}
	if health.Status != "pass" {
		logger.WithFields(logrus.Fields{
			"host":   config.Host,
			"status": health.Status,
		}).Error("InfluxDB health check failed")
		return nil, fmt.Errorf("influxdb health check failed: %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   config.Host,
		"bucket": config.Bucket,
		"org":    config.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(config.Org, config.Bucket),
		bucket:   config.Bucket,
		org:      config.Org,
	}, nil
}

// WriteCombinedTable exports every numeric sample of a combined result as a
// point tagged with its query label and PV name. Non-numeric values such as
// "<undefined>" are skipped, since the archive reports those for windows
// where the channel was disconnected.
func (idb *InfluxDBClient) WriteCombinedTable(ctx context.Context, combined *dataframe.CombinedTable) error {
	logger := logging.GetLogger()

	var points []*write.Point
	skipped := 0
	for _, row := range combined.Rows {
		for i, pv := range combined.PVs {
			value, err := strconv.ParseFloat(row.Values[i], 64)
			if err != nil {
				skipped++
				continue
			}
			point := influxdb2.NewPoint(Measurement,
				map[string]string{
					"query": row.Label,
					"pv":    pv,
				},
				map[string]interface{}{
					"value": value,
				},
				row.Timestamp)
			points = append(points, point)
		}
	}

	if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write samples to InfluxDB: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"points":  len(points),
		"skipped": skipped,
		"bucket":  idb.bucket,
	}).Info("Wrote samples to InfluxDB")
	return nil
}

func (idb *InfluxDBClient) Close() {
	idb.client.Close()
}
