// SPDX-License-Identifier: MPL-2.0

package matrix

type (
	// KnownFailure pre-declares a matrix cell (or family of cells) as
	// unsupported. Matching scenarios are recorded as skipped and never get
	// a container. Empty fields match any value.
	KnownFailure struct {
		Distribution string
		Version      string
		Architecture Architecture
		Libc         LibcVariant
		Reason       string
	}
)

// KnownFailures lists the combinations the installer does not support.
// Order matters: the first matching rule supplies the skip reason.
var KnownFailures = []KnownFailure{
	{Distribution: "alpine", Architecture: ArchARM64, Reason: "Alpine Linux on ARM64 is not supported"},
	{Distribution: "alpine", Libc: LibcGlibc, Reason: "Only musl libc variant is supported on Alpine Linux"},
	{Distribution: "ubuntu", Version: "20.04", Reason: "Ubuntu 20.04 is not supported"},
	{Distribution: "debian", Version: "11", Reason: "Debian 11 is not supported"},
	{Distribution: "amazonlinux", Version: "2", Libc: LibcGlibc, Reason: "Only musl libc variant is supported on Amazon Linux 2"},
}

// Matches reports whether the key falls under this rule.
func (f KnownFailure) Matches(key ScenarioKey) bool {
	if f.Distribution != "" && f.Distribution != key.Distribution {
		return false
	}
	if f.Version != "" && f.Version != key.Version {
		return false
	}
	if f.Architecture != "" && f.Architecture != key.Architecture {
		return false
	}
	if f.Libc != "" && f.Libc != key.Libc {
		return false
	}
	return true
}

// KnownFailureReason returns the declared skip reason for the key, if any.
func KnownFailureReason(key ScenarioKey) (string, bool) {
	for _, f := range KnownFailures {
		if f.Matches(key) {
			return f.Reason, true
		}
	}
	return "", false
}
