// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigNotFoundId Id = iota + 1
	ConfigInvalidId
	TemplateErrorId
	VersionNotFoundId
	AmbiguousVersionId
	RateLimitedId
	NetworkFailureId
	EngineUnavailableId
	DuplicateTargetId
	UnresolvedPinId
	LockNotFoundId
	LockInvalidId
	MissingDependencyId
	NoScriptId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // links into our own docs
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# No imagewright.toml found!

We looked for an image configuration but couldn't find one.

## Things you can try:
- Run from the directory that holds your imagewright.toml:
~~~
$ cd /path/to/your/images
$ imagewright update
~~~

- Or point at the file explicitly:
~~~
$ imagewright update -f configs/imagewright.toml
~~~

## Minimal configuration:
~~~toml
registry = "quay.io/acme"

[[base]]
name = "fedora"
versions = ["42"]
package-manager = "rpm"
version-tag = "fc{{version}}"
image = "quay.io/fedora/fedora:{{version}}"
~~~`,
	}

	configInvalidIssue = &Issue{
		id: ConfigInvalidId,
		mdMsg: `
# Failed to parse imagewright.toml!

Your configuration contains syntax errors or invalid fields.

## Common issues:
- Invalid TOML syntax (unclosed strings, stray brackets)
- Unknown field names
- A build that references an undeclared base or feature
- Duplicate base/feature names

## Things you can try:
- Check the error message above for the offending field
- Run with verbose mode for more details:
~~~
$ imagewright --verbose update
~~~

## Example of a valid build definition:
~~~toml
[[build]]
bases = ["fedora"]
features = [
  ["corretto", "temurin"],
  ["wildfly"],
]
image-name = "{{base.name}}-jre"
image-tag = "{{base.v.version}}"
~~~`,
	}

	templateErrorIssue = &Issue{
		id: TemplateErrorId,
		mdMsg: `
# Template expression failed!

A ` + "`{{...}}`" + ` expression in your configuration could not be evaluated.

## Common causes:
- A field path that doesn't exist in the context (typo in ` + "`{{base.name}}`" + `?)
- An index past the end of the version fields (` + "`{{versions.3}}`" + ` on "17.2")
- An unterminated ` + "`{{#if}}`" + ` block

## Things you can try:
- In image-tag, only selected features are in scope; guard alternatives:
~~~
image-tag = "{{#if corretto}}c{{corretto.version}}{{else}}t{{temurin.version}}{{/if}}"
~~~

- Inside a base or feature, use ` + "`{{version}}`" + ` and ` + "`{{versions.N}}`" + `
- Check for balanced ` + "`{{#if}}` / `{{/if}}`" + ` pairs`,
	}

	versionNotFoundIssue = &Issue{
		id: VersionNotFoundId,
		mdMsg: `
# Version placeholder matched nothing!

A version placeholder with wildcards didn't match any published tag.

## Things you can try:
- List the project's tags and check the pattern shape:
~~~
$ git ls-remote --tags https://github.com/<org>/<project>
~~~

- Remember that ` + "`*`" + ` matches exactly one dot-separated field;
  "17.0.*" will not match a two-field tag like "17.4"
- Loosen the placeholder ("21.*.*" instead of "21.0.*")
- If the source publishes branches instead of tags:
~~~toml
[feature.fetch-version]
type = "github"
org = "corretto"
project = "corretto-{{versions.0}}"
version-from = "branch"
~~~`,
	}

	ambiguousVersionIssue = &Issue{
		id: AmbiguousVersionId,
		mdMsg: `
# Version command output unusable!

The container command configured to print a version produced no usable output.

## Things you can try:
- Run the command by hand and inspect what it prints:
~~~
$ docker run --rm <image> <command...>
~~~

- The last non-empty line must be a version-ish token, e.g. "41" or "17.0.9"
- Pipe through a filter inside the command to isolate the number:
~~~toml
[base.fetch-version]
type = "docker"
image = "quay.io/fedora/fedora:{{version}}"
command = ["sh", "-c", "rpm -E %fedora"]
~~~`,
	}

	rateLimitedIssue = &Issue{
		id: RateLimitedId,
		mdMsg: `
# GitHub rate limit exhausted!

The GitHub API refused further requests until the limit resets.

## Things you can try:
- Authenticate; authenticated requests get a far higher quota:
~~~
$ export GH_TOKEN=<your token>
$ imagewright update
~~~

- Or store the token in your tool config:
~~~toml
# ~/.config/imagewright/config.toml
[github]
token = "<your token>"
~~~

- Wait for the reset time printed above and retry`,
	}

	networkFailureIssue = &Issue{
		id: NetworkFailureId,
		mdMsg: `
# Network failure while resolving versions!

A version lookup could not reach its upstream source.

## Things you can try:
- Check connectivity to github.com and your registry
- Retry; transient failures are retried a few times already,
  and the retry budget can be raised:
~~~
$ imagewright update --retries 5 --retry-backoff 2s
~~~

- If you are behind a proxy, make sure HTTPS_PROXY is exported`,
	}

	engineUnavailableIssue = &Issue{
		id: EngineUnavailableId,
		mdMsg: `
# Container engine not available!

Resolving versions by running a container, and pinning images by digest,
both need a running Docker-compatible engine.

## Things you can try:
- Start the engine:
~~~
$ systemctl start docker
~~~

- Point DOCKER_HOST at a reachable daemon (Podman works too):
~~~
$ export DOCKER_HOST=unix://$XDG_RUNTIME_DIR/podman/podman.sock
~~~

- Install Docker: https://docs.docker.com/get-docker/`,
	}

	duplicateTargetIssue = &Issue{
		id: DuplicateTargetId,
		mdMsg: `
# Build targets collide!

Two expanded builds produced the same target name, so one Dockerfile
stage would silently shadow the other.

## Common causes:
- A version-tag that ignores the version ("jdk" instead of "jdk{{version}}"),
  collapsing every version onto one target
- The same pinned build listed twice
- Two build matrices overlapping on the same base/feature combination

## Things you can try:
- Put the version into every version-tag so the targets stay distinct
- Remove the overlapping combination from one of the builds`,
	}

	unresolvedPinIssue = &Issue{
		id: UnresolvedPinId,
		mdMsg: `
# Pinned version not declared!

A build pins a base or feature to a version that its declaration
doesn't list.

## Things you can try:
- Add the version to the declaration:
~~~toml
[[feature]]
name = "corretto"
versions = ["17", "21"]   # the pin must name one of these
~~~

- Or fix the pin to one of the declared versions
- Pins match the placeholder as written; a pin of "17" will not
  match a declared "17.*"`,
	}

	lockNotFoundIssue = &Issue{
		id: LockNotFoundId,
		mdMsg: `
# No lock file found!

This command reads a previously generated lock file, and none was found.

## Things you can try:
- Generate it first:
~~~
$ imagewright update
~~~

- Or point at the lock explicitly:
~~~
$ imagewright write --lock build/imagewright.lock --out build
~~~`,
	}

	lockInvalidIssue = &Issue{
		id: LockInvalidId,
		mdMsg: `
# Failed to parse lock file!

The lock file exists but is not valid.

## Common causes:
- Hand edits that broke the TOML syntax
- A partial write from an interrupted run
- Merge conflict markers left in the file

## Things you can try:
- Regenerate it from the configuration:
~~~
$ imagewright update
~~~

- Lock files are generated output; prefer regenerating over editing`,
	}

	missingDependencyIssue = &Issue{
		id: MissingDependencyId,
		mdMsg: `
# Build dependency missing!

A feature step declares a file dependency that doesn't exist next to
the configuration.

## Things you can try:
- Create the file at the path printed above, relative to the
  directory holding imagewright.toml
- Dependency paths are rendered per version; check that the file
  for this particular version exists:
~~~toml
[[feature.step]]
method = "docker"
commands = ["RUN /opt/install.sh {{version}}"]
dependencies = ["scripts/install-{{version}}.conf"]
~~~`,
	}

	noScriptIssue = &Issue{
		id: NoScriptId,
		mdMsg: `
# No install script for package manager!

A package-manager step has no script entry for the base image's
package manager, so the feature cannot be installed on that base.

## Things you can try:
- Add a script for the missing manager:
~~~toml
[[feature.step]]
method = "pkg-manager"
[feature.step.scripts]
rpm = ["dnf install -y java-{{version}}-devel"]
apt = ["apt-get install -y java-{{version}}-jdk"]
~~~

- Or exclude the base from the builds that select this feature`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():    configNotFoundIssue,
		configInvalidIssue.Id():     configInvalidIssue,
		templateErrorIssue.Id():     templateErrorIssue,
		versionNotFoundIssue.Id():   versionNotFoundIssue,
		ambiguousVersionIssue.Id():  ambiguousVersionIssue,
		rateLimitedIssue.Id():       rateLimitedIssue,
		networkFailureIssue.Id():    networkFailureIssue,
		engineUnavailableIssue.Id(): engineUnavailableIssue,
		duplicateTargetIssue.Id():   duplicateTargetIssue,
		unresolvedPinIssue.Id():     unresolvedPinIssue,
		lockNotFoundIssue.Id():      lockNotFoundIssue,
		lockInvalidIssue.Id():       lockInvalidIssue,
		missingDependencyIssue.Id(): missingDependencyIssue,
		noScriptIssue.Id():          noScriptIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
