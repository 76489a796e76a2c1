package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Zacy-Sokach/crmassist/internal/chat"
	"github.com/Zacy-Sokach/crmassist/internal/mockapi"
)

// runCLI 在隔离的配置目录下执行命令
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	_, err := runCLIOutput(t, args...)
	return err
}

// runCLIOutput 同 runCLI，并返回命令写到标准输出的内容
func runCLIOutput(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CRMASSIST_CONFIG_HOME", t.TempDir())
	t.Setenv("CRMASSIST_API_URL", "")
	os.Unsetenv("CRMASSIST_API_URL")
	apiURL, debugMode = "", false

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func mockServer(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(mockapi.New(mockapi.Options{Logger: logger}).Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestAskAgainstMock(t *testing.T) {
	url := mockServer(t)

	out, err := runCLIOutput(t, "--api-url", url, "ask", "show", "the", "funnel")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if !strings.Contains(out, "Reasoning (") {
		t.Errorf("reasoning steps missing from output:\n%s", out)
	}
}

func TestAskSurfacesBackendError(t *testing.T) {
	url := mockServer(t)

	out, err := runCLIOutput(t, "--api-url", url, "ask", "please", "fail")
	if err == nil || err.Error() != "Agent failed to process the request" {
		t.Errorf("expected backend detail, got %v", err)
	}
	// main 打印返回的错误，命令本身不再输出一遍
	if strings.Contains(out, "Agent failed") || strings.Contains(out, chat.ErrorPrefix) {
		t.Errorf("failure printed by the command as well:\n%s", out)
	}
}

func TestConfigInitRejectsInvalidURL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CRMASSIST_CONFIG_HOME", dir)
	apiURL, debugMode = "", false

	root := newRootCmd()
	root.SetArgs([]string{"--api-url", "ftp://crm.example.com", "config", "init"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	if err := root.Execute(); err == nil {
		t.Fatal("expected a validation error")
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); !os.IsNotExist(err) {
		t.Error("invalid config must not be written")
	}
}

func TestListCommandsAgainstMock(t *testing.T) {
	url := mockServer(t)

	for _, args := range [][]string{
		{"emails", "--limit", "2"},
		{"events"},
		{"events", "create", "--summary", "Demo", "--start", "2025-06-07T10:00:00Z", "--end", "2025-06-07T11:00:00Z"},
		{"events", "update", "evt-1", "--location", "Room 9"},
		{"interactions", "--days", "3"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := runCLI(t, append([]string{"--api-url", url}, args...)...); err != nil {
				t.Errorf("%v failed: %v", args, err)
			}
		})
	}
}

func TestInvalidAPIURL(t *testing.T) {
	if err := runCLI(t, "--api-url", "not a url", "emails"); err == nil {
		t.Error("expected a validation error")
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CRMASSIST_CONFIG_HOME", dir)
	apiURL, debugMode = "", false

	root := newRootCmd()
	root.SetArgs([]string{"config", "init"})
	if err := root.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "api_url: http://localhost:8001") {
		t.Errorf("unexpected config:\n%s", data)
	}

	root = newRootCmd()
	root.SetArgs([]string{"config", "init"})
	if err := root.Execute(); err == nil {
		t.Error("second init without --force should fail")
	}
}

func TestFormatMoney(t *testing.T) {
	if got := formatMoney(0); got != "-" {
		t.Errorf("formatMoney(0) = %q", got)
	}
	if got := formatMoney(1234.5); got != "$1234.50" {
		t.Errorf("formatMoney(1234.5) = %q", got)
	}
}
