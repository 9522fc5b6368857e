package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"farmgate/pkg/api"
)

// Runs first: the required-flag check only fires while no earlier test
// has marked --build and --pool as changed.
func TestRunCommand_RequiresBuildAndPool(t *testing.T) {
	resetViper()
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"run", "--platform", "android"})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for missing required flags")
	}
}

func TestRunCommand_Success(t *testing.T) {
	resetViper()

	var received api.StartRunRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/runs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		resp := api.StartRunResponse{
			RunHandle: "run-77",
			Name:      "nightly",
			Status:    "SCHEDULING",
			CreatedAt: time.Now().UTC(),
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"run",
		"--build", "/builds/app.apk",
		"--pool", "pool-1",
		"--platform", "android",
		"--mode", "single_case",
		"--test", "test/e2e/login.e2e.ts",
		"--case", "should login",
		"--name", "nightly",
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.BuildFilePath != "/builds/app.apk" || received.DevicePoolHandle != "pool-1" {
		t.Errorf("unexpected request payload: %+v", received)
	}
	if received.TestMode != "single_case" || received.SelectedTestCase != "should login" {
		t.Errorf("test selection lost: %+v", received)
	}

	output := stdout.String()
	if !strings.Contains(output, "run-77") {
		t.Errorf("expected run handle in output, got: %s", output)
	}
	if !strings.Contains(output, "farmctl status run-77") {
		t.Errorf("expected follow-up hint, got: %s", output)
	}
}

func TestRunCommand_ServerError(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "APP_BINARY upload up-1 still processing after 30 polls", Code: "504"})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"run", "--build", "/builds/app.apk", "--pool", "pool-1"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "Failed to trigger run") {
		t.Errorf("expected failure message, got: %s", stdout.String())
	}
}
