// SPDX-License-Identifier: MPL-2.0

package wrightfile

import (
	"fmt"
)

// VersionFrom selects which ref namespace a GitHub fetch consults.
type VersionFrom string

const (
	// VersionFromTag lists repository tags (the default).
	VersionFromTag VersionFrom = "tag"
	// VersionFromBranch lists repository branches.
	VersionFromBranch VersionFrom = "branch"
)

// ParseVersionFrom converts a config string to a VersionFrom value.
// The empty string maps to VersionFromTag.
func ParseVersionFrom(value string) (VersionFrom, error) {
	switch value {
	case "", string(VersionFromTag):
		return VersionFromTag, nil
	case string(VersionFromBranch):
		return VersionFromBranch, nil
	default:
		return "", fmt.Errorf("invalid version-from %q (must be 'tag' or 'branch')", value)
	}
}

// FetchVersion determines how a base or feature's concrete version is
// discovered from a version placeholder. The two variants mirror the
// config's fetch-version types.
type FetchVersion interface {
	fetchVersion()
}

// DockerFetch runs a command in a container of a templated image and reads
// the version from its output (config type = "docker").
type DockerFetch struct {
	// Image is the image reference template, rendered against the
	// placeholder context.
	Image string

	// Command is the argv to run inside the container; elements are
	// templates.
	Command []string
}

func (DockerFetch) fetchVersion() {}

// GitHubFetch lists refs from a GitHub repository and picks the newest
// name matching the placeholder (config type = "github").
type GitHubFetch struct {
	// Org is the repository owner.
	Org string

	// Project is the repository name template, rendered against the
	// placeholder context.
	Project string

	// VersionFrom selects tags or branches.
	VersionFrom VersionFrom
}

func (GitHubFetch) fetchVersion() {}

// fetch-version type discriminators as written in the config.
const (
	fetchTypeDocker = "docker"
	fetchTypeGitHub = "github"
)

func (r *rawFetch) normalize(path, owner string) (FetchVersion, error) {
	if r == nil {
		return nil, nil
	}

	switch r.Type {
	case fetchTypeDocker:
		return DockerFetch{Image: r.Image, Command: r.Command}, nil
	case fetchTypeGitHub:
		from, err := ParseVersionFrom(r.VersionFrom)
		if err != nil {
			return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: %v", owner, err)}
		}
		return GitHubFetch{Org: r.Org, Project: r.Project, VersionFrom: from}, nil
	default:
		return nil, &ValidateError{File: path, Detail: fmt.Sprintf("%s: unknown fetch-version type %q", owner, r.Type)}
	}
}
