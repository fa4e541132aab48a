package config

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("AUDIT_TEST_BOOL", "Yes")
	t.Setenv("AUDIT_TEST_INT", "x12")
	t.Setenv("AUDIT_TEST_DUR_SECONDS", "90")
	t.Setenv("AUDIT_TEST_DUR", "2m")
	t.Setenv("AUDIT_TEST_LIST", " a, ,b ")

	if !EnvBool("AUDIT_TEST_BOOL", false) {
		t.Fatalf("EnvBool should accept yes")
	}
	if EnvBool("AUDIT_TEST_UNSET", false) {
		t.Fatalf("EnvBool default not applied")
	}
	if got := EnvInt("AUDIT_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt with garbage = %d, want default 7", got)
	}
	if got := EnvDuration("AUDIT_TEST_DUR_SECONDS", time.Second); got != 90*time.Second {
		t.Fatalf("bare integer duration = %s", got)
	}
	if got := EnvDuration("AUDIT_TEST_DUR", time.Second); got != 2*time.Minute {
		t.Fatalf("duration = %s", got)
	}
	got := EnvList("AUDIT_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("EnvList = %#v", got)
	}
}

func TestLoad(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "defaults", env: map[string]string{}},
		{name: "custom", env: map[string]string{"PORT": "9090", "DEFAULT_STANDARD": "ifrs", "REDIS_ADDRESS": "localhost:6379"}},
		{name: "bad standard", env: map[string]string{"DEFAULT_STANDARD": "martian"}, wantErr: true},
		{name: "bad port", env: map[string]string{"PORT": "http"}, wantErr: true},
		{name: "bad redis", env: map[string]string{"REDIS_ADDRESS": "no port"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, k := range []string{"PORT", "DEFAULT_STANDARD", "REDIS_ADDRESS", "CORS_ORIGINS", "MAX_UPLOAD_MB", "CACHE_TTL", "CACHE_SIZE", "LOCK_TTL", "GIN_DEBUG"} {
				t.Setenv(k, "")
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			s, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", s)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if tc.name == "defaults" && (s.Port != "8080" || s.DefaultStandard != "syscohada" || s.MaxUploadBytes != 50<<20 || s.CacheTTL != time.Hour) {
				t.Fatalf("defaults = %+v", s)
			}
		})
	}
}
