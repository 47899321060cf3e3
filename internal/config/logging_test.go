package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	s := &Settings{
		Host: "localhost",
		Port: 8080,
		Auth: AuthSettings{Type: AuthTypeNone},
	}
	Log(s) // Should not panic
}

func TestLogWithLogger_CoreSettings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := &Settings{
		Host: "localhost",
		Port: 8080,
		Auth: AuthSettings{Type: AuthTypeNone},
		Stream: StreamSettings{
			Addr:   "localhost:6379",
			Stream: "dcse_stream",
			Group:  "indexer_group",
		},
		Index: IndexSettings{Dir: "searchd-index"},
	}

	LogWithLogger(s, logger)

	output := buf.String()
	for _, want := range []string{"host", "port", "stream.addr", "stream.group", "index.dir"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output", want)
		}
	}
	// No synonyms path configured, so it should not be logged
	if strings.Contains(output, "synonyms_path") {
		t.Error("Expected no 'synonyms_path' in log output when unset")
	}
}

func TestLogWithLogger_MasksBasicAuthPassword(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := &Settings{
		Host: "localhost",
		Port: 8080,
		Auth: AuthSettings{
			Type:  AuthTypeBasic,
			Basic: BasicAuthSettings{Username: "admin", Password: "hunter2"},
		},
	}

	LogWithLogger(s, logger)

	output := buf.String()
	if strings.Contains(output, "hunter2") {
		t.Error("Password must never appear in log output")
	}
	if !strings.Contains(output, "admin") {
		t.Error("Expected username in log output")
	}
}

func TestLogWithLogger_APIKeyCountOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := &Settings{
		Host: "localhost",
		Port: 8080,
		Auth: AuthSettings{
			Type:    AuthTypeAPIKey,
			APIKeys: []string{"supersecretkey"},
		},
	}

	LogWithLogger(s, logger)

	output := buf.String()
	if strings.Contains(output, "supersecretkey") {
		t.Error("API keys must never appear in log output")
	}
	if !strings.Contains(output, "count=1") {
		t.Error("Expected API key count in log output")
	}
}

func TestAuthSettingsLogValue_MasksSecrets(t *testing.T) {
	s := AuthSettings{
		Type:    AuthTypeAPIKey,
		Basic:   BasicAuthSettings{Username: "admin", Password: "hunter2"},
		APIKeys: []string{"supersecretkey"},
	}

	rendered := AuthSettingsLogValue(s).String()
	if strings.Contains(rendered, "hunter2") || strings.Contains(rendered, "supersecretkey") {
		t.Errorf("Secrets leaked into log value: %s", rendered)
	}
}
