package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"farmgate/pkg/api"
)

// FarmgateClient handles API calls to the farmgate controller.
type FarmgateClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewFarmgateClient creates a new client with the given base URL and token.
// The timeout is generous because triggering a run blocks through three
// upload-and-poll cycles on the controller side.
func NewFarmgateClient(baseURL, token string) *FarmgateClient {
	return &FarmgateClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Minute,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// StartRun sends POST /runs to trigger a device test run.
func (c *FarmgateClient) StartRun(req api.StartRunRequest) (*api.StartRunResponse, error) {
	var result api.StartRunResponse
	if err := c.do(http.MethodPost, "/runs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRun sends GET /runs/{id} to retrieve run status.
func (c *FarmgateClient) GetRun(runHandle string) (*api.RunStatusResponse, error) {
	var result api.RunStatusResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/runs/%s", runHandle), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetReport sends GET /runs/{id}/report to resolve the report URL.
func (c *FarmgateClient) GetReport(runHandle string) (*api.ReportResponse, error) {
	var result api.ReportResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/runs/%s/report", runHandle), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListHistory sends GET /history to retrieve the persisted run history.
func (c *FarmgateClient) ListHistory() ([]api.HistoryEntry, error) {
	var result api.HistoryResponse
	if err := c.do(http.MethodGet, "/history", nil, &result); err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// ReconcileHistory sends POST /history/reconcile to pull finished remote
// runs into the history before listing.
func (c *FarmgateClient) ReconcileHistory() (*api.ReconcileResponse, error) {
	var result api.ReconcileResponse
	if err := c.do(http.MethodPost, "/history/reconcile", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *FarmgateClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// clientFromViper builds a client from the resolved flags/env/config.
// It returns nil after printing a hint when the token is missing.
func clientFromViper(cmd *cobra.Command) *FarmgateClient {
	url := viper.GetString("url")
	token := viper.GetString("token")

	if token == "" {
		cmd.Println("API key not found. Please set it using the --token flag or the FARMGATE_TOKEN environment variable")
		return nil
	}
	return NewFarmgateClient(url, token)
}
