package app

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestRegisterFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	// Verify all flags are registered
	expectedFlags := []string{
		"host",
		"port",
		"auth-type",
		"auth-basic-username",
		"auth-basic-password",
		"auth-api-keys",
		"stream-addr",
		"stream-name",
		"stream-group",
		"index-dir",
		"synonyms",
	}

	for _, name := range expectedFlags {
		if flags.Lookup(name) == nil {
			t.Errorf("Expected flag %q to be registered", name)
		}
	}
}

func TestRegisterFlags_Shorthand(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	shorthandFlags := map[string]string{
		"host":                "H",
		"port":                "p",
		"auth-type":           "a",
		"auth-basic-username": "u",
		"auth-basic-password": "P",
		"auth-api-keys":       "k",
		"index-dir":           "d",
	}

	for name, shorthand := range shorthandFlags {
		flag := flags.Lookup(name)
		if flag == nil {
			t.Errorf("Flag %q not found", name)
			continue
		}
		if flag.Shorthand != shorthand {
			t.Errorf("Flag %q expected shorthand %q, got %q", name, shorthand, flag.Shorthand)
		}
	}
}

func TestRegisterFlags_SetValues(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)

	err := flags.Parse([]string{
		"--host", "localhost",
		"--port", "9090",
		"--stream-addr", "redis.internal:6380",
		"--index-dir", "/var/lib/searchd",
	})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	host, _ := flags.GetString("host")
	if host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", host)
	}

	port, _ := flags.GetInt("port")
	if port != 9090 {
		t.Errorf("Expected port 9090, got %d", port)
	}

	addr, _ := flags.GetString("stream-addr")
	if addr != "redis.internal:6380" {
		t.Errorf("Expected stream-addr 'redis.internal:6380', got '%s'", addr)
	}

	dir, _ := flags.GetString("index-dir")
	if dir != "/var/lib/searchd" {
		t.Errorf("Expected index-dir '/var/lib/searchd', got '%s'", dir)
	}
}
