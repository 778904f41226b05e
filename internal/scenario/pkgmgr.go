// SPDX-License-Identifier: MPL-2.0

package scenario

import (
	"fmt"
	"strings"
)

const (
	FamilyApt    Family = "apt"
	FamilyDnf    Family = "dnf"
	FamilyYum    Family = "yum"
	FamilyZypper Family = "zypper"
	FamilyApk    Family = "apk"
)

// basePackages are required in every container: unzip for extraction,
// findutils for locating the script and binary, sudo for the unprivileged
// install path, ca-certificates for anything the installer fetches.
var basePackages = []string{"unzip", "ca-certificates", "findutils", "sudo"}

type (
	// Family identifies a package-manager family. Each distribution maps
	// to exactly one family, which determines the install commands, the
	// administrative group, and any distribution-specific extras.
	Family string
)

// FamilyFor maps a distribution name to its package-manager family.
func FamilyFor(distribution string) (Family, error) {
	switch distribution {
	case "debian", "ubuntu":
		return FamilyApt, nil
	case "fedora", "rocky", "centos":
		return FamilyDnf, nil
	case "amazonlinux":
		return FamilyYum, nil
	case "opensuse":
		return FamilyZypper, nil
	case "alpine":
		return FamilyApk, nil
	default:
		return "", fmt.Errorf("no package manager known for distribution %q", distribution)
	}
}

// Packages returns the package set to provision: the base packages plus
// family-specific extras (alpine needs shadow for usermod).
func (f Family) Packages() []string {
	if f == FamilyApk {
		return append(append([]string{}, basePackages...), "shadow")
	}
	return basePackages
}

// InstallCommand returns the shell command that refreshes the package
// index and installs pkgs in one batch.
func (f Family) InstallCommand(pkgs []string) string {
	list := strings.Join(pkgs, " ")
	switch f {
	case FamilyApt:
		return "apt-get update && apt-get install -y --no-install-recommends " + list
	case FamilyDnf:
		return "dnf makecache && dnf install -y --allowerasing --nobest " + list
	case FamilyYum:
		return "yum makecache && yum install -y " + list
	case FamilyZypper:
		return "zypper --non-interactive refresh && zypper --non-interactive install " + list
	case FamilyApk:
		return "apk update && apk add --no-cache " + list
	default:
		return ""
	}
}

// InstallOneCommand returns the shell command for a single package,
// without the index refresh; used by the one-by-one fallback after a
// failed batch install.
func (f Family) InstallOneCommand(pkg string) string {
	switch f {
	case FamilyApt:
		return "apt-get install -y --no-install-recommends " + pkg
	case FamilyDnf:
		return "dnf install -y --allowerasing --nobest " + pkg
	case FamilyYum:
		return "yum install -y " + pkg
	case FamilyZypper:
		return "zypper --non-interactive install " + pkg
	case FamilyApk:
		return "apk add --no-cache " + pkg
	default:
		return ""
	}
}

// SudoGroup returns the group granting passwordless sudo on this family.
func (f Family) SudoGroup() string {
	if f == FamilyApt {
		return "sudo"
	}
	return "wheel"
}

// PostSetupCommand returns a command to run after package provisioning,
// or empty when the family needs none. Alpine images ship without a
// wheel group, so one is created there.
func (f Family) PostSetupCommand() string {
	if f == FamilyApk {
		return "addgroup wheel 2>/dev/null || true"
	}
	return ""
}
