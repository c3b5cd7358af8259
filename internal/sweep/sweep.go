// Package sweep is a client for the Bayesian hyperparameter search service.
// The service owns the search strategy; the pipeline only asks it for the
// next trial and reports the objective back.
package sweep

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	contentType = "application/json"

	MethodBayes = "bayes"

	GoalMaximize = "maximize"
	GoalMinimize = "minimize"

	// Trial states accepted by the service.
	StateFinished = "finished"
	StateFailed   = "failed"
)

type Client struct {
	token  string
	logger *zap.Logger

	HTTPClient *http.Client
	APIURL     string
}

func New(apiURL, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		logger: logger,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Metric names the objective the sweep optimizes.
type Metric struct {
	Name string `json:"name"`
	Goal string `json:"goal"`
}

// Parameter describes the search space of one hyperparameter. Either a
// continuous [Min, Max] range or a discrete Values list.
type Parameter struct {
	Min    *float64 `json:"min,omitempty" mapstructure:"min"`
	Max    *float64 `json:"max,omitempty" mapstructure:"max"`
	Values []any    `json:"values,omitempty" mapstructure:"values"`
}

// CreateSweepRequest registers a new search on the service.
type CreateSweepRequest struct {
	Project    string               `json:"project"`
	Method     string               `json:"method"`
	Metric     Metric               `json:"metric"`
	Parameters map[string]Parameter `json:"parameters"`
}

// Sweep identifies a registered search.
type Sweep struct {
	ID string `json:"id"`
}

// Trial is one suggested hyperparameter configuration.
type Trial struct {
	ID     string         `json:"id"`
	Params map[string]any `json:"params"`
}

// TrialResult reports the outcome of a trial back to the service.
type TrialResult struct {
	State  string  `json:"state"`
	Metric float64 `json:"metric"`
}

// CreateSweep registers a new sweep and returns its id.
func (c *Client) CreateSweep(ctx context.Context, req *CreateSweepRequest) (*Sweep, error) {
	if req == nil {
		return nil, errors.New("create sweep request is required")
	}
	if req.Method == "" {
		req.Method = MethodBayes
	}

	var sweep Sweep
	if err := c.postJSON(ctx, fmt.Sprintf("%s/api/v1/sweeps", c.APIURL), req, &sweep); err != nil {
		return nil, fmt.Errorf("create sweep: %w", err)
	}

	c.logger.Info("created sweep",
		zap.String("sweep_id", sweep.ID),
		zap.String("project", req.Project),
		zap.String("metric", req.Metric.Name),
	)

	return &sweep, nil
}

// SuggestTrial asks the service for the next configuration to evaluate.
func (c *Client) SuggestTrial(ctx context.Context, sweepID string) (*Trial, error) {
	if sweepID == "" {
		return nil, errors.New("sweep id is required")
	}

	var trial Trial
	url := fmt.Sprintf("%s/api/v1/sweeps/%s/trials", c.APIURL, sweepID)
	if err := c.postJSON(ctx, url, struct{}{}, &trial); err != nil {
		return nil, fmt.Errorf("suggest trial: %w", err)
	}

	return &trial, nil
}

// ReportResult posts the objective value (or failure) of a trial.
func (c *Client) ReportResult(ctx context.Context, trialID string, result *TrialResult) error {
	if trialID == "" {
		return errors.New("trial id is required")
	}
	if result == nil {
		return errors.New("trial result is required")
	}

	url := fmt.Sprintf("%s/api/v1/trials/%s/result", c.APIURL, trialID)
	if err := c.postJSON(ctx, url, result, nil); err != nil {
		return fmt.Errorf("report trial result: %w", err)
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
