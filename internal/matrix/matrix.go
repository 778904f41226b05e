// SPDX-License-Identifier: MPL-2.0

package matrix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ArchX8664 is the Intel/AMD 64-bit architecture.
	ArchX8664 Architecture = "x86_64"
	// ArchARM64 is the ARM 64-bit architecture.
	ArchARM64 Architecture = "arm64"

	// LibcMusl selects the statically-linked musl installer bundle.
	LibcMusl LibcVariant = "musl"
	// LibcGlibc selects the glibc-linked installer bundle.
	LibcGlibc LibcVariant = "glibc"
)

var (
	// ErrInvalidArchitecture is the sentinel error wrapped by InvalidArchitectureError.
	ErrInvalidArchitecture = errors.New("invalid architecture")

	// ErrInvalidLibcVariant is the sentinel error wrapped by InvalidLibcVariantError.
	ErrInvalidLibcVariant = errors.New("invalid libc variant")

	// RequiredGlibc is the minimum glibc version the glibc bundle links against.
	// Distributions below it only get the musl variant.
	RequiredGlibc = GlibcVersion{Major: 2, Minor: 34}
)

type (
	// Architecture is a CPU architecture under test.
	// "aarch64" is accepted as an alias for arm64 on input.
	Architecture string

	// InvalidArchitectureError is returned when an Architecture is not recognized.
	InvalidArchitectureError struct {
		Value Architecture
	}

	// LibcVariant is the C library the installer bundle links against.
	LibcVariant string

	// InvalidLibcVariantError is returned when a LibcVariant is not recognized.
	InvalidLibcVariantError struct {
		Value LibcVariant
	}

	// GlibcVersion is a parsed glibc version, compared on (major, minor) only.
	GlibcVersion struct {
		Major int
		Minor int
	}

	// ScenarioKey uniquely identifies one test matrix cell.
	// Immutable once constructed.
	ScenarioKey struct {
		Distribution string
		Version      string
		Architecture Architecture
		Libc         LibcVariant
	}

	// DistroSpec is one row of the test matrix input: a distribution release
	// on one architecture, with the glibc version it ships (empty for
	// musl-only distributions such as Alpine).
	DistroSpec struct {
		Name     string
		Version  string
		Arch     Architecture
		MinGlibc string
	}

	// Filter holds the command-line single-value overrides. When all four
	// fields are set the matrix collapses to exactly that ScenarioKey; a
	// partial filter is rejected rather than silently expanded.
	Filter struct {
		Distribution string
		Version      string
		Architecture Architecture
		Libc         LibcVariant
	}
)

// Distros is the default test matrix, one entry per (distribution, version,
// architecture) with the glibc version that release ships.
var Distros = []DistroSpec{
	{"ubuntu", "20.04", ArchX8664, "2.31"},
	{"ubuntu", "20.04", ArchARM64, "2.31"},
	{"ubuntu", "22.04", ArchX8664, "2.35"},
	{"ubuntu", "22.04", ArchARM64, "2.35"},
	{"ubuntu", "24.04", ArchX8664, "2.38"},
	{"ubuntu", "24.04", ArchARM64, "2.38"},
	{"debian", "11", ArchX8664, "2.31"},
	{"debian", "11", ArchARM64, "2.31"},
	{"debian", "12", ArchX8664, "2.36"},
	{"debian", "12", ArchARM64, "2.36"},
	{"fedora", "38", ArchX8664, "2.37"},
	{"fedora", "39", ArchX8664, "2.38"},
	{"amazonlinux", "2023", ArchX8664, "2.34"},
	{"amazonlinux", "2023", ArchARM64, "2.34"},
	{"amazonlinux", "2", ArchX8664, "2.26"},
	{"rocky", "9", ArchX8664, "2.34"},
	{"rocky", "9", ArchARM64, "2.34"},
	{"alpine", "3.19", ArchX8664, ""},
	{"alpine", "3.19", ArchARM64, ""},
}

// NormalizeArchitecture maps accepted spellings to a canonical Architecture.
// "aarch64" is folded into arm64; unknown values are returned as-is for
// Validate to reject.
func NormalizeArchitecture(s string) Architecture {
	if s == "aarch64" {
		return ArchARM64
	}
	return Architecture(s)
}

// Validate returns an error if the Architecture is not one of the supported values.
func (a Architecture) Validate() error {
	switch a {
	case ArchX8664, ArchARM64:
		return nil
	default:
		return &InvalidArchitectureError{Value: a}
	}
}

// String returns the string representation of the Architecture.
func (a Architecture) String() string { return string(a) }

// Platform returns the container platform flag value for this architecture
// (e.g., "linux/amd64").
func (a Architecture) Platform() string {
	if a == ArchX8664 {
		return "linux/amd64"
	}
	return "linux/" + string(a)
}

// ArtifactArch returns the architecture component of installer artifact
// filenames, which uses "aarch64" rather than "arm64".
func (a Architecture) ArtifactArch() string {
	if a == ArchARM64 {
		return "aarch64"
	}
	return string(a)
}

// Error implements the error interface.
func (e *InvalidArchitectureError) Error() string {
	return fmt.Sprintf("invalid architecture %q (valid: x86_64, arm64, aarch64)", e.Value)
}

// Unwrap returns ErrInvalidArchitecture so callers can use errors.Is.
func (e *InvalidArchitectureError) Unwrap() error { return ErrInvalidArchitecture }

// Validate returns an error if the LibcVariant is not one of the supported values.
func (v LibcVariant) Validate() error {
	switch v {
	case LibcMusl, LibcGlibc:
		return nil
	default:
		return &InvalidLibcVariantError{Value: v}
	}
}

// String returns the string representation of the LibcVariant.
func (v LibcVariant) String() string { return string(v) }

// Error implements the error interface.
func (e *InvalidLibcVariantError) Error() string {
	return fmt.Sprintf("invalid libc variant %q (valid: musl, glibc)", e.Value)
}

// Unwrap returns ErrInvalidLibcVariant so callers can use errors.Is.
func (e *InvalidLibcVariantError) Unwrap() error { return ErrInvalidLibcVariant }

// ParseGlibcVersion parses a "major.minor" version string. A missing minor
// component defaults to 0; an empty string parses to the zero version.
func ParseGlibcVersion(s string) (GlibcVersion, error) {
	if s == "" {
		return GlibcVersion{}, nil
	}
	parts := strings.SplitN(s, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return GlibcVersion{}, fmt.Errorf("parse glibc version %q: %w", s, err)
	}
	v := GlibcVersion{Major: major}
	if len(parts) > 1 {
		minor, err := strconv.Atoi(parts[1])
		if err != nil {
			return GlibcVersion{}, fmt.Errorf("parse glibc version %q: %w", s, err)
		}
		v.Minor = minor
	}
	return v, nil
}

// AtLeast reports whether v >= other, compared lexicographically on
// (major, minor).
func (v GlibcVersion) AtLeast(other GlibcVersion) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	return v.Minor >= other.Minor
}

// String returns the "major.minor" form.
func (v GlibcVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Validate checks all fields of the ScenarioKey.
func (k ScenarioKey) Validate() error {
	var errs []error
	if k.Distribution == "" {
		errs = append(errs, errors.New("distribution must be non-empty"))
	}
	if k.Version == "" {
		errs = append(errs, errors.New("version must be non-empty"))
	}
	if err := k.Architecture.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := k.Libc.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Slug returns the deterministic "<distro>-<version>-<arch>-<variant>" form
// used in record file names.
func (k ScenarioKey) Slug() string {
	return fmt.Sprintf("%s-%s-%s-%s", k.Distribution, k.Version, k.Architecture, k.Libc)
}

// String returns a human-readable description of the matrix cell.
func (k ScenarioKey) String() string {
	return fmt.Sprintf("%s %s on %s with %s", k.Distribution, k.Version, k.Architecture, k.Libc)
}

// ArtifactFilename returns the canonical installer zip name for this cell,
// e.g. "amazon-q-developer-cli-aarch64-linux-musl.zip".
func (k ScenarioKey) ArtifactFilename() string {
	name := fmt.Sprintf("amazon-q-developer-cli-%s-linux", k.Architecture.ArtifactArch())
	if k.Libc == LibcMusl {
		name += "-musl"
	}
	return name + ".zip"
}

// Complete reports whether every field of the Filter is set.
func (f Filter) Complete() bool {
	return f.Distribution != "" && f.Version != "" && f.Architecture != "" && f.Libc != ""
}

// Key converts a complete Filter into its ScenarioKey.
func (f Filter) Key() ScenarioKey {
	return ScenarioKey{
		Distribution: f.Distribution,
		Version:      f.Version,
		Architecture: f.Architecture,
		Libc:         f.Libc,
	}
}

// Expand generates ScenarioKeys for every spec entry: the musl variant is
// always emitted; the glibc variant is emitted only when the entry declares
// a glibc version at or above RequiredGlibc.
func Expand(specs []DistroSpec) ([]ScenarioKey, error) {
	keys := make([]ScenarioKey, 0, len(specs)*2)
	for _, spec := range specs {
		keys = append(keys, ScenarioKey{
			Distribution: spec.Name,
			Version:      spec.Version,
			Architecture: spec.Arch,
			Libc:         LibcMusl,
		})

		if spec.MinGlibc == "" {
			continue
		}
		v, err := ParseGlibcVersion(spec.MinGlibc)
		if err != nil {
			return nil, fmt.Errorf("distro %s %s: %w", spec.Name, spec.Version, err)
		}
		if v.AtLeast(RequiredGlibc) {
			keys = append(keys, ScenarioKey{
				Distribution: spec.Name,
				Version:      spec.Version,
				Architecture: spec.Arch,
				Libc:         LibcGlibc,
			})
		}
	}
	return keys, nil
}

// Scenarios returns the keys to run. A complete Filter short-circuits matrix
// generation entirely and yields exactly that one key; otherwise the full
// spec list is expanded. Command-line overrides replace the matrix, they do
// not filter it.
func Scenarios(specs []DistroSpec, filter Filter) ([]ScenarioKey, error) {
	if filter.Complete() {
		key := filter.Key()
		if err := key.Validate(); err != nil {
			return nil, err
		}
		return []ScenarioKey{key}, nil
	}
	return Expand(specs)
}
