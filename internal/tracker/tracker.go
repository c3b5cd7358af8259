// Package tracker is a client for the experiment tracking service. Every
// training run is registered there and its final precision/recall/F1 are
// posted before the run is closed.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	contentType = "application/json"

	// Run states accepted by the service.
	StateFinished = "finished"
	StateFailed   = "failed"
)

type Client struct {
	token   string
	project string
	logger  *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

func New(apiURL, token, project string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:   token,
		project: project,
		logger:  logger,
		APIURL:  apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Run identifies a tracked training run.
type Run struct {
	ID string `json:"id"`
}

// Metrics are the evaluation scores reported for a run.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

type startRunRequest struct {
	Project string         `json:"project"`
	Name    string         `json:"name"`
	Config  map[string]any `json:"config,omitempty"`
}

type finishRunRequest struct {
	State string `json:"state"`
}

// StartRun registers a new run under the client's project.
func (c *Client) StartRun(ctx context.Context, name string, config map[string]any) (*Run, error) {
	var run Run
	req := startRunRequest{Project: c.project, Name: name, Config: config}
	if err := c.postJSON(ctx, fmt.Sprintf("%s/api/v1/runs", c.APIURL), req, &run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	c.logger.Debug("started tracker run", zap.String("run_id", run.ID), zap.String("name", name))

	return &run, nil
}

// LogMetrics posts the evaluation metrics of a run.
func (c *Client) LogMetrics(ctx context.Context, runID string, metrics Metrics) error {
	url := fmt.Sprintf("%s/api/v1/runs/%s/metrics", c.APIURL, runID)
	if err := c.postJSON(ctx, url, metrics, nil); err != nil {
		return fmt.Errorf("log metrics: %w", err)
	}
	return nil
}

// FinishRun closes a run with the given state.
func (c *Client) FinishRun(ctx context.Context, runID, state string) error {
	url := fmt.Sprintf("%s/api/v1/runs/%s/finish", c.APIURL, runID)
	if err := c.postJSON(ctx, url, finishRunRequest{State: state}, nil); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload, target any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request", zap.String("url", url))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, target)
}
