package mya

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/JeffersonLab/mya-getter/internal/dataframe"
	"github.com/JeffersonLab/mya-getter/internal/logging"
)

// DefaultMySamplerURL is the public myquery mysampler endpoint.
const DefaultMySamplerURL = "https://epicsweb.jlab.org/myquery/mysampler"

// WebClient runs mySampler-equivalent queries against the myquery web
// service instead of the command-line utility.
type WebClient struct {
	URL        string // endpoint; DefaultMySamplerURL when empty
	HTTPClient *http.Client
	Options    url.Values // extra request parameters; query fields win on conflict
}

type webChannel struct {
	Data []webSample `json:"data"`
}

type webSample struct {
	Date string `json:"d"`
	// Value is decoded with UseNumber so numeric values keep the service's
	// textual representation.
	Value interface{} `json:"v"`
	// Type is set on non-update events, e.g. channel disconnects.
	Type *string `json:"t"`
}

type webResponse struct {
	Channels map[string]webChannel `json:"channels"`
}

var webDateLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// MySampler runs one query against the myquery service and returns a table
// shaped exactly like the CLI's: the first requested PV's series supplies
// the timestamps, and samples from disconnect events become "<undefined>"
// to match what the mySampler CLI prints.
func (c *WebClient) MySampler(ctx context.Context, query MySamplerQuery) (*dataframe.SampleTable, error) {
	logger := logging.GetLogger()

	endpoint := c.URL
	if endpoint == "" {
		endpoint = DefaultMySamplerURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	queryParams, err := query.WebParams()
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	for key, values := range c.Options {
		params[key] = values
	}
	for key, values := range queryParams {
		params[key] = values
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ExecutionError{Source: endpoint, Err: err}
	}

	logger.WithField("url", endpoint).WithField("pvs", len(query.PVList)).Info("Starting myquery mysampler request")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &ExecutionError{Source: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ExecutionError{Source: endpoint, Detail: fmt.Sprintf("error contacting server, status=%d", resp.StatusCode)}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var body webResponse
	if err := decoder.Decode(&body); err != nil {
		return nil, &ParseError{Source: endpoint, Reason: fmt.Sprintf("undecodable response body: %v", err)}
	}

	return tableFromChannels(endpoint, query.PVList, body.Channels)
}

func tableFromChannels(source string, pvs []string, channels map[string]webChannel) (*dataframe.SampleTable, error) {
	if len(pvs) == 0 {
		return nil, &ParseError{Source: source, Reason: "no PVs requested"}
	}

	first, ok := channels[pvs[0]]
	if !ok {
		return nil, &ParseError{Source: source, Reason: fmt.Sprintf("channel %s missing from response", pvs[0])}
	}

	table := dataframe.NewSampleTable(pvs)
	for i, sample := range first.Data {
		timestamp, err := parseWebDate(sample.Date)
		if err != nil {
			return nil, &ParseError{Source: source, Reason: fmt.Sprintf("bad timestamp %q", sample.Date)}
		}

		values := make([]string, len(pvs))
		for j, pv := range pvs {
			channel, ok := channels[pv]
			if !ok {
				return nil, &ParseError{Source: source, Reason: fmt.Sprintf("channel %s missing from response", pv)}
			}
			if len(channel.Data) != len(first.Data) {
				return nil, &ParseError{Source: source, Reason: fmt.Sprintf("channel %s has %d samples, %s has %d", pv, len(channel.Data), pvs[0], len(first.Data))}
			}
			values[j] = webValue(channel.Data[i])
		}
		if err := table.AddRow(timestamp, values); err != nil {
			return nil, &ParseError{Source: source, Reason: err.Error()}
		}
	}
	return table, nil
}

// webValue renders one web sample the way the CLI would have printed it.
func webValue(sample webSample) string {
	if sample.Type != nil {
		return "<undefined>"
	}
	return fmt.Sprint(sample.Value)
}

func parseWebDate(s string) (time.Time, error) {
	var err error
	for _, layout := range webDateLayouts {
		var timestamp time.Time
		if timestamp, err = time.Parse(layout, s); err == nil {
			return timestamp, nil
		}
	}
	return time.Time{}, err
}
