// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/imagewright/imagewright/internal/config"
	"github.com/imagewright/imagewright/internal/expand"
	"github.com/imagewright/imagewright/internal/github"
	"github.com/imagewright/imagewright/internal/template"
	"github.com/imagewright/imagewright/internal/vercache"
	"github.com/imagewright/imagewright/internal/version"
	"github.com/imagewright/imagewright/pkg/lockfile"
	"github.com/imagewright/imagewright/pkg/wrightfile"
)

type (
	// stubResolver resolves every placeholder to itself, standing in for
	// live command and GitHub lookups. With literal placeholders like "41"
	// the resolved version equals the placeholder, which keeps expected
	// renders easy to read.
	stubResolver struct{}

	// stubDigests pins every image to one fixed digest.
	stubDigests struct {
		digest string
	}
)

func (stubResolver) Resolve(_ context.Context, _, placeholder string, _ version.Strategy) (version.Result, error) {
	return version.Result{Version: placeholder, Fields: version.Split(placeholder)}, nil
}

func (d stubDigests) ImageDigest(context.Context, string) (string, error) {
	return d.digest, nil
}

// updateTestConfig is a minimal config with literal versions: one rpm
// base, one feature with a single script step, one cartesian build.
const updateTestConfig = `
registry = "quay.io/acme"

[[base]]
name = "fedora"
versions = ["41"]
package-manager = "rpm"
version-tag = "fc{{version}}"
image = "quay.io/fedora/fedora:{{version}}"

[[feature]]
name = "jdk"
versions = ["17"]
version-tag = "jdk{{versions.0}}"

  [[feature.step]]
  method = "rpm"
    [feature.step.scripts]
    rpm = ["dnf install -y java-{{versions.0}}-openjdk"]

[[build]]
bases = ["fedora"]
features = [["jdk"]]
image-name = "acme/jre"
image-tag = "{{jdk.version}}-{{base.v.version}}"
`

// writeUpdateConfig writes content into dir under the default config name
// and returns the config path.
func writeUpdateConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, wrightfile.DefaultName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

// testUpdateParams returns params wired to the stub resolver and digest
// source, writing into the given buffers.
func testUpdateParams(configPath string, stdout, stderr *bytes.Buffer) updateParams {
	return updateParams{
		stdout:     stdout,
		stderr:     stderr,
		configPath: configPath,
		resolver:   stubResolver{},
		digests:    stubDigests{digest: "sha256:1111111111111111111111111111111111111111111111111111111111111111"},
		workers:    4,
	}
}

func TestRunUpdate_WritesLockAndTargets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := writeUpdateConfig(t, dir, updateTestConfig)

	var stdout, stderr bytes.Buffer
	err := runUpdate(context.Background(), testUpdateParams(configPath, &stdout, &stderr))
	if err != nil {
		t.Fatalf("runUpdate() error = %v", err)
	}

	lockPath := filepath.Join(dir, lockfile.DefaultName)
	lock, err := lockfile.Parse(lockPath)
	if err != nil {
		t.Fatalf("parsing written lock: %v", err)
	}

	if lock.Registry != "quay.io/acme" {
		t.Errorf("Registry = %q, want %q", lock.Registry, "quay.io/acme")
	}
	if len(lock.Bases) != 1 {
		t.Fatalf("got %d locked bases, want 1", len(lock.Bases))
	}
	base := lock.Bases[0]
	if base.Tag != "fc41" || base.Image != "quay.io/fedora/fedora" {
		t.Errorf("locked base = %+v, want tag fc41 image quay.io/fedora/fedora", base)
	}
	if base.Identifier.Type != lockfile.IdentifierDigest {
		t.Errorf("base pinned by %q, want digest", base.Identifier.Type)
	}

	if len(lock.Features) != 1 || lock.Features[0].Tag != "jdk17" {
		t.Fatalf("locked features = %+v, want one with tag jdk17", lock.Features)
	}
	script := lock.Features[0].Steps[0].Scripts["rpm"]
	if len(script) != 1 || script[0] != "dnf install -y java-17-openjdk" {
		t.Errorf("rendered script = %q", script)
	}

	if len(lock.Builds) != 1 {
		t.Fatalf("got %d locked builds, want 1", len(lock.Builds))
	}
	build := lock.Builds[0]
	if build.Target != "fc41-jdk17" || build.ImageName != "acme/jre" || build.ImageTag != "17-41" {
		t.Errorf("locked build = %+v", build)
	}

	targets, err := os.ReadFile(lockfile.TargetsPath(lockPath))
	if err != nil {
		t.Fatalf("reading target list: %v", err)
	}
	if string(targets) != "fc41-jdk17\n" {
		t.Errorf("target list = %q, want %q", targets, "fc41-jdk17\n")
	}

	out := stdout.String()
	for _, token := range []string{"Resolved 1 bases, 1 features, 1 builds", "Wrote"} {
		if !strings.Contains(out, token) {
			t.Errorf("stdout missing %q:\n%s", token, out)
		}
	}
}

func TestRunUpdate_LockPathOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := writeUpdateConfig(t, dir, updateTestConfig)
	lockPath := filepath.Join(dir, "pinned", "images.lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		t.Fatalf("creating lock dir: %v", err)
	}

	var stdout, stderr bytes.Buffer
	p := testUpdateParams(configPath, &stdout, &stderr)
	p.lockPath = lockPath

	if err := runUpdate(context.Background(), p); err != nil {
		t.Fatalf("runUpdate() error = %v", err)
	}

	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock not written at override path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "pinned", "images.txt")); err != nil {
		t.Errorf("target list not written next to lock: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, lockfile.DefaultName)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("default lock path written despite override, stat err = %v", err)
	}
}

func TestRunUpdate_MissingConfig(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	p := testUpdateParams(filepath.Join(t.TempDir(), wrightfile.DefaultName), &stdout, &stderr)

	err := runUpdate(context.Background(), p)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("runUpdate() error = %v, want fs.ErrNotExist", err)
	}
	if code := classifyUpdateExitCode(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunUpdate_InvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := writeUpdateConfig(t, dir, `registry = "quay.io/acme"

[[base]]
name = "fedora"
`)

	var stdout, stderr bytes.Buffer
	err := runUpdate(context.Background(), testUpdateParams(configPath, &stdout, &stderr))
	if !errors.Is(err, wrightfile.ErrInvalidConfig) {
		t.Fatalf("runUpdate() error = %v, want ErrInvalidConfig", err)
	}
	if code := classifyUpdateExitCode(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunUpdate_DuplicateTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := writeUpdateConfig(t, dir, updateTestConfig+`
[[build]]
bases = ["fedora"]
features = [["jdk"]]
image-name = "acme/jre-copy"
image-tag = "dup"
`)

	var stdout, stderr bytes.Buffer
	err := runUpdate(context.Background(), testUpdateParams(configPath, &stdout, &stderr))
	if !errors.Is(err, expand.ErrDuplicateTarget) {
		t.Fatalf("runUpdate() error = %v, want ErrDuplicateTarget", err)
	}
	if code := classifyUpdateExitCode(err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestRunUpdate_KeepsPreviousLockOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := writeUpdateConfig(t, dir, strings.ReplaceAll(updateTestConfig,
		`image-tag = "{{jdk.version}}-{{base.v.version}}"`,
		`image-tag = "{{missing.version}}"`))

	lockPath := filepath.Join(dir, lockfile.DefaultName)
	previous := []byte("registry = \"kept\"\n")
	if err := os.WriteFile(lockPath, previous, 0o644); err != nil {
		t.Fatalf("seeding previous lock: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err := runUpdate(context.Background(), testUpdateParams(configPath, &stdout, &stderr))
	if !errors.Is(err, template.ErrUnknownField) {
		t.Fatalf("runUpdate() error = %v, want ErrUnknownField", err)
	}

	kept, readErr := os.ReadFile(lockPath)
	if readErr != nil {
		t.Fatalf("reading lock after failed pass: %v", readErr)
	}
	if !bytes.Equal(kept, previous) {
		t.Errorf("failed pass rewrote the lock:\n%s", kept)
	}
	if _, statErr := os.Stat(lockfile.TargetsPath(lockPath)); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("failed pass wrote a target list, stat err = %v", statErr)
	}
}

func TestClassifyUpdateExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{
			name:     "missing config returns 2",
			err:      fs.ErrNotExist,
			wantCode: 2,
		},
		{
			name:     "wrapped missing config returns 2",
			err:      fmt.Errorf("failed to read config: %w", fs.ErrNotExist),
			wantCode: 2,
		},
		{
			name:     "invalid config returns 2",
			err:      fmt.Errorf("%w: registry missing", wrightfile.ErrInvalidConfig),
			wantCode: 2,
		},
		{
			name:     "duplicate target returns 1",
			err:      fmt.Errorf("expanding builds: %w", expand.ErrDuplicateTarget),
			wantCode: 1,
		},
		{
			name:     "version not found returns 1",
			err:      version.ErrNotFound,
			wantCode: 1,
		},
		{
			name:     "generic failure returns 1",
			err:      errors.New("connection refused"),
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := classifyUpdateExitCode(tt.err)
			if got != tt.wantCode {
				t.Errorf("classifyUpdateExitCode(%v) = %d, want %d", tt.err, got, tt.wantCode)
			}
		})
	}
}

// TestResolveToken mutates the package-level tool config and process env,
// so it cannot run in parallel.
func TestResolveToken(t *testing.T) {
	origCfg := toolCfg
	t.Cleanup(func() { toolCfg = origCfg })

	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	toolCfg = config.DefaultConfig()
	if got := resolveToken(""); got != "" {
		t.Errorf("no sources: resolveToken() = %q, want empty", got)
	}

	t.Setenv("GITHUB_TOKEN", "from-github-env")
	if got := resolveToken(""); got != "from-github-env" {
		t.Errorf("GITHUB_TOKEN fallback: resolveToken() = %q", got)
	}

	t.Setenv("GH_TOKEN", "from-gh-env")
	if got := resolveToken(""); got != "from-gh-env" {
		t.Errorf("GH_TOKEN beats GITHUB_TOKEN: resolveToken() = %q", got)
	}

	toolCfg.GitHub.Token = "from-config"
	if got := resolveToken(""); got != "from-config" {
		t.Errorf("config beats env: resolveToken() = %q", got)
	}

	if got := resolveToken("from-flag"); got != "from-flag" {
		t.Errorf("flag beats all: resolveToken() = %q", got)
	}
}

func TestGithubFetch_DispatchesOnMode(t *testing.T) {
	t.Parallel()

	var lastPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath.Store(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		var names []string
		switch {
		case strings.HasSuffix(r.URL.Path, "/tags"):
			names = []string{"v2.1.0", "v2.0.0"}
		case strings.HasSuffix(r.URL.Path, "/branches"):
			names = []string{"main", "release/2.x"}
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}

		refs := make([]map[string]string, len(names))
		for i, n := range names {
			refs[i] = map[string]string{"name": n}
		}
		if err := json.NewEncoder(w).Encode(refs); err != nil {
			t.Errorf("encoding refs: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	fetch := githubFetch(github.NewClient(github.WithBaseURL(srv.URL)))

	tags, err := fetch(context.Background(), vercache.Key{Org: "acme", Project: "widget", Mode: version.ModeTag})
	if err != nil {
		t.Fatalf("tag fetch error = %v", err)
	}
	if len(tags) != 2 || tags[0] != "v2.1.0" {
		t.Errorf("tags = %q", tags)
	}
	if got := lastPath.Load(); got != "/repos/acme/widget/tags" {
		t.Errorf("tag fetch hit %q", got)
	}

	branches, err := fetch(context.Background(), vercache.Key{Org: "acme", Project: "widget", Mode: version.ModeBranch})
	if err != nil {
		t.Fatalf("branch fetch error = %v", err)
	}
	if len(branches) != 2 || branches[0] != "main" {
		t.Errorf("branches = %q", branches)
	}
	if got := lastPath.Load(); got != "/repos/acme/widget/branches" {
		t.Errorf("branch fetch hit %q", got)
	}
}

func TestCacheLister_ServesRepeatsFromStore(t *testing.T) {
	t.Parallel()

	// Single-goroutine use, so the fetch runs synchronously.
	calls := 0
	var gotKey vercache.Key
	cache := vercache.NewCache(vercache.NewMemoryStore(), func(_ context.Context, key vercache.Key) ([]string, error) {
		calls++
		gotKey = key
		return []string{"v1.0.0"}, nil
	})
	lister := &cacheLister{cache: cache}

	for i := 0; i < 2; i++ {
		names, err := lister.ListNames(context.Background(), "acme", "widget", version.ModeTag)
		if err != nil {
			t.Fatalf("ListNames() error = %v", err)
		}
		if len(names) != 1 || names[0] != "v1.0.0" {
			t.Errorf("names = %q", names)
		}
	}

	if calls != 1 {
		t.Errorf("fetch ran %d times, want 1", calls)
	}
	want := vercache.Key{Org: "acme", Project: "widget", Mode: version.ModeTag}
	if gotKey != want {
		t.Errorf("fetch key = %+v, want %+v", gotKey, want)
	}
}
