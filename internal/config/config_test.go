package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitializeLoadsDefaults(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")

	if err := Initialize(WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if GetBool(KeyDebug) {
		t.Fatalf("expected default %s to be false", KeyDebug)
	}
	if got := GetString(KeyOutputFormat); got != "rich" {
		t.Fatalf("expected default %s to be rich, got %q", KeyOutputFormat, got)
	}

	s := Update()
	if s.Owner != DefaultOwner || s.Repo != DefaultRepo {
		t.Fatalf("expected default repository %s/%s, got %s/%s", DefaultOwner, DefaultRepo, s.Owner, s.Repo)
	}
	if s.MetadataTimeout != 10*time.Second {
		t.Fatalf("expected 10s metadata timeout, got %s", s.MetadataTimeout)
	}
	if s.CacheTTL != 10*time.Minute {
		t.Fatalf("expected 10m cache TTL, got %s", s.CacheTTL)
	}
	if s.UserAgent != "mirror-app" {
		t.Fatalf("expected default user agent, got %q", s.UserAgent)
	}
}

func TestUserConfigOverridesDefaults(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
update:
  owner: someone
  repo: fork
  api-base-url: https://ghe.example.com/api/v3/
  download-timeout: 90s
  download-retries: 5
output:
  format: plain
`)

	if err := Initialize(WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	s := Update()
	if s.Owner != "someone" || s.Repo != "fork" {
		t.Fatalf("expected user repository, got %s/%s", s.Owner, s.Repo)
	}
	if s.APIBaseURL != "https://ghe.example.com/api/v3" {
		t.Fatalf("expected trailing slash trimmed, got %q", s.APIBaseURL)
	}
	if s.DownloadTimeout != 90*time.Second {
		t.Fatalf("expected 90s download timeout, got %s", s.DownloadTimeout)
	}
	if s.DownloadRetries != 5 {
		t.Fatalf("expected 5 retries, got %d", s.DownloadRetries)
	}
	if got := GetString(KeyOutputFormat); got != "plain" {
		t.Fatalf("expected plain output format, got %q", got)
	}
}

func TestEnvironmentAndOverridesPrecedence(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
update:
  user-agent: from-file
  cache-ttl: 1m
`)

	t.Setenv("MIRROR_UPDATE_USER_AGENT", "from-env")
	t.Setenv("MIRROR_UPDATE_CACHE_TTL", "2m")

	if err := Initialize(WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	if got := Update().UserAgent; got != "from-env" {
		t.Fatalf("expected environment to override user agent, got %q", got)
	}
	if got := Update().CacheTTL; got != 2*time.Minute {
		t.Fatalf("expected environment cache TTL, got %s", got)
	}

	if err := ApplyOverrides(map[string]any{KeyUpdateUserAgent: "from-flag", KeyDebug: true}); err != nil {
		t.Fatalf("ApplyOverrides returned error: %v", err)
	}
	if got := Update().UserAgent; got != "from-flag" {
		t.Fatalf("expected CLI override to win, got %q", got)
	}
	if !GetBool(KeyDebug) {
		t.Fatalf("expected override for %s", KeyDebug)
	}
}

func TestUpdateFallsBackOnInvalidValues(t *testing.T) {
	reset()
	t.Cleanup(reset)

	tmp := t.TempDir()
	userCfg := filepath.Join(tmp, "user.yaml")
	writeFile(t, userCfg, `
update:
  owner: "   "
  metadata-timeout: 0s
  download-retries: -3
`)

	if err := Initialize(WithUserConfig(userCfg)); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}

	s := Update()
	if s.Owner != DefaultOwner {
		t.Fatalf("expected blank owner to fall back to default, got %q", s.Owner)
	}
	if s.MetadataTimeout != DefaultMetadataTimeout {
		t.Fatalf("expected zero timeout to fall back to default, got %s", s.MetadataTimeout)
	}
	if s.DownloadRetries != 0 {
		t.Fatalf("expected negative retries to clamp to 0, got %d", s.DownloadRetries)
	}
}

func TestInitializeRejectsDirectoryConfig(t *testing.T) {
	reset()
	t.Cleanup(reset)

	dir := t.TempDir()
	if err := Initialize(WithUserConfig(dir)); err == nil {
		t.Fatal("expected error when config path is a directory")
	}
}

func mustMkdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	mustMkdir(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}
