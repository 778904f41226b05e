// SPDX-License-Identifier: MPL-2.0

package session

import (
	"fmt"
	"strings"

	"qinstalltest/internal/matrix"
)

// ImageFor maps a matrix cell to its container image reference.
func ImageFor(key matrix.ScenarioKey) (string, error) {
	version := key.Version

	switch key.Distribution {
	case "ubuntu":
		// "lts" is an alias for the current LTS release.
		if version == "lts" {
			version = "22.04"
		}
		return "ubuntu:" + version, nil
	case "debian":
		return "debian:" + version, nil
	case "fedora":
		return "fedora:" + version, nil
	case "amazonlinux":
		return "amazonlinux:" + version, nil
	case "alpine":
		return "alpine:" + version, nil
	case "arch":
		return "archlinux:latest", nil
	case "rocky":
		return "rockylinux:" + version, nil
	case "centos":
		if strings.HasPrefix(version, "stream") {
			return "quay.io/centos/centos:" + version, nil
		}
		return "centos:" + version, nil
	case "opensuse":
		return "opensuse/leap:" + version, nil
	default:
		return "", fmt.Errorf("unsupported distribution: %s", key.Distribution)
	}
}
