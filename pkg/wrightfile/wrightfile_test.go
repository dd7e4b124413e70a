// SPDX-License-Identifier: MPL-2.0

package wrightfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfig = `
registry = "quay.io/acme"

[[base]]
name = "fedora"
versions = ["41", "42"]
package-manager = "rpm"
version-tag = "fc{{versions.0}}"
image = "fedora:{{version}}"

  [base.fetch-version]
  type = "docker"
  image = "fedora:{{version}}"
  command = ["sh", "-c", "rpm -E %fedora"]

[[feature]]
name = "corretto"
versions = ["17.*", "21.*"]
version-tag = "jdk{{versions.0}}"

  [feature.fetch-version]
  type = "github"
  org = "corretto"
  project = "corretto-{{versions.0}}"

  [[feature.step]]
  method = "rpm"
  copy = { "files/mvn" = "/usr/local/bin/mvn" }
    [feature.step.scripts]
    rpm = ["dnf install -y java-{{versions.0}}-amazon-corretto-devel", "dnf clean all"]
    apt = ["apt-get install -y java-{{versions.0}}-amazon-corretto-jdk"]

  [[feature.step]]
  method = "docker"
  commands = ["ENV JAVA_HOME=/usr/lib/jvm/java"]
  dependencies = ["files/mvn"]

[[feature]]
name = "wildfly"
versions = ["35.*"]
version-tag = "wf{{versions.0}}"

  [[feature.step]]
  method = "rpm"
    [feature.step.scripts]
    rpm = ["dnf install -y wildfly"]

[[build]]
bases = ["fedora"]
features = [["corretto"], ["wildfly"]]
image-name = "acme/devimg"
image-tag = "{{base.v.version}}-jdk{{corretto.version}}"

[[build]]
base = { name = "fedora", version = "41" }
features = [{ name = "corretto", version = "17.*" }]
image-name = "acme/legacy"
image-tag = "pinned-{{date}}"
`

func TestParseBytes(t *testing.T) {
	t.Parallel()

	wf, err := ParseBytes([]byte(validConfig), "imagewright.toml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	if wf.Registry != "quay.io/acme" {
		t.Errorf("Registry = %q, want %q", wf.Registry, "quay.io/acme")
	}

	if len(wf.Bases) != 1 {
		t.Fatalf("got %d bases, want 1", len(wf.Bases))
	}
	base := wf.Bases[0]
	if base.Name != "fedora" || base.PackageManager != "rpm" {
		t.Errorf("base = %+v, want fedora/rpm", base)
	}
	if base.VersionTag != "fc{{versions.0}}" {
		t.Errorf("base VersionTag = %q", base.VersionTag)
	}
	dockerFetch, ok := base.Fetch.(DockerFetch)
	if !ok {
		t.Fatalf("base fetch = %T, want DockerFetch", base.Fetch)
	}
	if dockerFetch.Image != "fedora:{{version}}" || len(dockerFetch.Command) != 3 {
		t.Errorf("docker fetch = %+v", dockerFetch)
	}

	if len(wf.Features) != 2 {
		t.Fatalf("got %d features, want 2", len(wf.Features))
	}
	corretto := wf.Features[0]
	ghFetch, ok := corretto.Fetch.(GitHubFetch)
	if !ok {
		t.Fatalf("corretto fetch = %T, want GitHubFetch", corretto.Fetch)
	}
	if ghFetch.Org != "corretto" || ghFetch.Project != "corretto-{{versions.0}}" {
		t.Errorf("github fetch = %+v", ghFetch)
	}
	if ghFetch.VersionFrom != VersionFromTag {
		t.Errorf("VersionFrom = %q, want default %q", ghFetch.VersionFrom, VersionFromTag)
	}

	if len(corretto.Steps) != 2 {
		t.Fatalf("corretto has %d steps, want 2", len(corretto.Steps))
	}
	pmStep, ok := corretto.Steps[0].(PackageManagerStep)
	if !ok {
		t.Fatalf("step #1 = %T, want PackageManagerStep", corretto.Steps[0])
	}
	if pmStep.Method != "rpm" || len(pmStep.Scripts) != 2 {
		t.Errorf("pm step = %+v", pmStep)
	}
	if got := pmStep.Copy["files/mvn"]; got != "/usr/local/bin/mvn" {
		t.Errorf("pm step copy = %q", got)
	}
	direct, ok := corretto.Steps[1].(DirectStep)
	if !ok {
		t.Fatalf("step #2 = %T, want DirectStep", corretto.Steps[1])
	}
	if len(direct.Commands) != 1 || len(direct.Dependencies) != 1 {
		t.Errorf("direct step = %+v", direct)
	}

	if len(wf.Builds) != 2 {
		t.Fatalf("got %d builds, want 2", len(wf.Builds))
	}
	cart, ok := wf.Builds[0].(CartesianBuild)
	if !ok {
		t.Fatalf("build #1 = %T, want CartesianBuild", wf.Builds[0])
	}
	if len(cart.Bases) != 1 || cart.Bases[0].Name != "fedora" || cart.Bases[0].Versions != nil {
		t.Errorf("cartesian bases = %+v", cart.Bases)
	}
	if len(cart.Features) != 2 {
		t.Errorf("cartesian groups = %+v", cart.Features)
	}
	pinned, ok := wf.Builds[1].(PinnedBuild)
	if !ok {
		t.Fatalf("build #2 = %T, want PinnedBuild", wf.Builds[1])
	}
	if pinned.Base != (Pin{Name: "fedora", Version: "41"}) {
		t.Errorf("pinned base = %+v", pinned.Base)
	}
	if len(pinned.Features) != 1 || pinned.Features[0] != (Pin{Name: "corretto", Version: "17.*"}) {
		t.Errorf("pinned features = %+v", pinned.Features)
	}
}

func TestParseBytes_VersionedSelector(t *testing.T) {
	t.Parallel()

	config := `
registry = "quay.io/acme"

[[base]]
name = "fedora"
versions = ["41", "42"]
package-manager = "rpm"
version-tag = "fc{{version}}"
image = "fedora:{{version}}"

[[build]]
bases = [{ name = "fedora", versions = ["41"] }]
features = []
image-name = "acme/minimal"
image-tag = "{{base.v.version}}"
`
	wf, err := ParseBytes([]byte(config), "imagewright.toml")
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}

	cart, ok := wf.Builds[0].(CartesianBuild)
	if !ok {
		t.Fatalf("build = %T, want CartesianBuild", wf.Builds[0])
	}
	sel := cart.Bases[0]
	if sel.Name != "fedora" || len(sel.Versions) != 1 || sel.Versions[0] != "41" {
		t.Errorf("selector = %+v", sel)
	}
	if len(cart.Features) != 0 {
		t.Errorf("groups = %+v, want none", cart.Features)
	}
}

func TestParseBytes_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "missing registry",
			config:  "[[base]]\nname = \"fedora\"\nversions = [\"41\"]\npackage-manager = \"rpm\"\nversion-tag = \"fc\"\nimage = \"fedora\"\n",
			wantErr: "registry",
		},
		{
			name:    "unknown top-level field",
			config:  "registry = \"r\"\nregistries = [\"r\"]\n",
			wantErr: "field not allowed",
		},
		{
			name:   "empty base versions",
			config: "registry = \"r\"\n\n[[base]]\nname = \"fedora\"\nversions = []\npackage-manager = \"rpm\"\nversion-tag = \"fc\"\nimage = \"fedora\"\n",
		},
		{
			name:   "missing base version-tag",
			config: "registry = \"r\"\n\n[[base]]\nname = \"fedora\"\nversions = [\"41\"]\npackage-manager = \"rpm\"\nimage = \"fedora\"\n",
		},
		{
			name:   "invalid version-from",
			config: "registry = \"r\"\n\n[[feature]]\nname = \"f\"\nversions = [\"1\"]\n\n[feature.fetch-version]\ntype = \"github\"\norg = \"o\"\nproject = \"p\"\nversion-from = \"weekly\"\n\n[[feature.step]]\nmethod = \"rpm\"\n[feature.step.scripts]\nrpm = [\"true\"]\n",
		},
		{
			name:   "unknown fetch type",
			config: "registry = \"r\"\n\n[[base]]\nname = \"fedora\"\nversions = [\"41\"]\npackage-manager = \"rpm\"\nversion-tag = \"fc\"\nimage = \"fedora\"\n\n[base.fetch-version]\ntype = \"svn\"\n",
		},
		{
			name:   "direct step with scripts",
			config: "registry = \"r\"\n\n[[feature]]\nname = \"f\"\nversions = [\"1\"]\n\n[[feature.step]]\nmethod = \"docker\"\ncommands = [\"RUN true\"]\n[feature.step.scripts]\nrpm = [\"true\"]\n",
		},
		{
			name:   "package-manager step without scripts",
			config: "registry = \"r\"\n\n[[feature]]\nname = \"f\"\nversions = [\"1\"]\n\n[[feature.step]]\nmethod = \"rpm\"\n",
		},
		{
			name:   "feature without steps",
			config: "registry = \"r\"\n\n[[feature]]\nname = \"f\"\nversions = [\"1\"]\n",
		},
		{
			name:   "build with both forms",
			config: "registry = \"r\"\n\n[[base]]\nname = \"b\"\nversions = [\"1\"]\npackage-manager = \"rpm\"\nversion-tag = \"t\"\nimage = \"i\"\n\n[[build]]\nbases = [\"b\"]\nfeatures = []\nimage-name = \"n\"\nimage-tag = \"t\"\nbase = { name = \"b\", version = \"1\" }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseBytes([]byte(tt.config), "imagewright.toml")
			if err == nil {
				t.Fatal("ParseBytes() = nil, want schema error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseBytes_ModelViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "duplicate base name",
			config: "registry = \"r\"\n\n" +
				"[[base]]\nname = \"fedora\"\nversions = [\"41\"]\npackage-manager = \"rpm\"\nversion-tag = \"a\"\nimage = \"i\"\n\n" +
				"[[base]]\nname = \"fedora\"\nversions = [\"42\"]\npackage-manager = \"rpm\"\nversion-tag = \"b\"\nimage = \"i\"\n",
			wantErr: `duplicate base name "fedora"`,
		},
		{
			name: "overlapping feature partition",
			config: "registry = \"r\"\n\n" +
				"[[feature]]\nname = \"jdk\"\nversions = [\"17.*\"]\n[[feature.step]]\nmethod = \"rpm\"\n[feature.step.scripts]\nrpm = [\"true\"]\n\n" +
				"[[feature]]\nname = \"jdk\"\nversions = [\"17.*\", \"21.*\"]\n[[feature.step]]\nmethod = \"rpm\"\n[feature.step.scripts]\nrpm = [\"true\"]\n",
			wantErr: `version "17.*" claimed by multiple entries`,
		},
		{
			name: "unknown base reference",
			config: "registry = \"r\"\n\n" +
				"[[base]]\nname = \"fedora\"\nversions = [\"41\"]\npackage-manager = \"rpm\"\nversion-tag = \"a\"\nimage = \"i\"\n\n" +
				"[[build]]\nbases = [\"ubuntu\"]\nfeatures = []\nimage-name = \"n\"\nimage-tag = \"t\"\n",
			wantErr: `unknown base "ubuntu"`,
		},
		{
			name: "unknown feature in pinned build",
			config: "registry = \"r\"\n\n" +
				"[[base]]\nname = \"fedora\"\nversions = [\"41\"]\npackage-manager = \"rpm\"\nversion-tag = \"a\"\nimage = \"i\"\n\n" +
				"[[build]]\nbase = { name = \"fedora\", version = \"41\" }\nfeatures = [{ name = \"jdk\", version = \"17\" }]\nimage-name = \"n\"\nimage-tag = \"t\"\n",
			wantErr: `unknown feature "jdk"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseBytes([]byte(tt.config), "imagewright.toml")
			if err == nil {
				t.Fatal("ParseBytes() = nil, want validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
			}
			var verr *ValidateError
			if !errors.As(err, &verr) {
				t.Fatalf("error should be a *ValidateError, got %T", err)
			}
			if !strings.Contains(verr.Detail, tt.wantErr) {
				t.Errorf("detail %q should contain %q", verr.Detail, tt.wantErr)
			}
		})
	}
}

func TestValidate_HandBuiltModel(t *testing.T) {
	t.Parallel()

	wf := &Wrightfile{
		Registry: "quay.io/acme",
		Bases: []BaseSpec{
			{Name: "fedora", Versions: []string{"41"}, PackageManager: "rpm", Image: "fedora"},
		},
	}
	err := wf.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want missing version-tag error")
	}
	if !strings.Contains(err.Error(), "version-tag is required") {
		t.Errorf("error = %v, want version-tag mention", err)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("reads config from disk", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultName)
		if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}

		wf, err := Parse(path)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if wf.FilePath != path {
			t.Errorf("FilePath = %q, want %q", wf.FilePath, path)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := Parse(filepath.Join(t.TempDir(), "absent.toml"))
		if err == nil {
			t.Error("Parse() = nil, want read error")
		}
	})
}

func TestParseVersionFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    VersionFrom
		wantErr bool
	}{
		{name: "empty defaults to tag", value: "", want: VersionFromTag},
		{name: "tag", value: "tag", want: VersionFromTag},
		{name: "branch", value: "branch", want: VersionFromBranch},
		{name: "plural is invalid", value: "tags", wantErr: true},
		{name: "unknown", value: "weekly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseVersionFrom(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersionFrom(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseVersionFrom(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestFeatureEntries(t *testing.T) {
	t.Parallel()

	wf := &Wrightfile{
		Features: []FeatureSpec{
			{Name: "jdk", Versions: []string{"17.*"}},
			{Name: "wildfly", Versions: []string{"35.*"}},
			{Name: "jdk", Versions: []string{"21.*"}},
		},
	}

	entries := wf.FeatureEntries("jdk")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Versions[0] != "17.*" || entries[1].Versions[0] != "21.*" {
		t.Errorf("entries out of declaration order: %+v", entries)
	}
	if got := wf.FeatureEntries("absent"); got != nil {
		t.Errorf("FeatureEntries(absent) = %+v, want nil", got)
	}
}
