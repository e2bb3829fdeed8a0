package connutil

import (
	"strings"
	"testing"

	"github.com/basinlabs/pgbridge/internal/model"
)

func TestSSLModeDisabledIgnoresMode(t *testing.T) {
	got := sslMode(model.TLSConfig{Enabled: false, Mode: model.TLSRequire, VerifyPeer: true})
	if got != "disable" {
		t.Errorf("sslMode() = %q, want %q", got, "disable")
	}
}

func TestSSLModeRequireWithoutVerifyPeer(t *testing.T) {
	got := sslMode(model.TLSConfig{Enabled: true, Mode: model.TLSRequire, VerifyPeer: false})
	if got != "require" {
		t.Errorf("sslMode() = %q, want %q", got, "require")
	}
}

func TestSSLModeRequireWithVerifyPeer(t *testing.T) {
	got := sslMode(model.TLSConfig{Enabled: true, Mode: model.TLSRequire, VerifyPeer: true})
	if got != "verify-full" {
		t.Errorf("sslMode() = %q, want %q", got, "verify-full")
	}
}

func TestSSLModePrefer(t *testing.T) {
	got := sslMode(model.TLSConfig{Enabled: true, Mode: model.TLSPrefer})
	if got != "prefer" {
		t.Errorf("sslMode() = %q, want %q", got, "prefer")
	}
}

func TestDSNIncludesAllFields(t *testing.T) {
	spec := model.ConnectionSpec{
		Host:     "db.internal",
		Port:     5433,
		Database: "app",
		User:     "repl",
		Password: "s3cret",
		TLS:      model.TLSConfig{Enabled: true, Mode: model.TLSRequire, VerifyPeer: true},
	}
	dsn := DSN(spec)
	for _, want := range []string{
		"host=db.internal",
		"port=5433",
		"dbname=app",
		"user=repl",
		"password=s3cret",
		"sslmode=verify-full",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN() = %q, missing %q", dsn, want)
		}
	}
}
