// SPDX-License-Identifier: MPL-2.0

package session

import (
	"testing"

	"qinstalltest/internal/matrix"
)

func TestImageFor(t *testing.T) {
	tests := []struct {
		distribution string
		version      string
		want         string
	}{
		{"ubuntu", "24.04", "ubuntu:24.04"},
		{"ubuntu", "lts", "ubuntu:22.04"},
		{"debian", "12", "debian:12"},
		{"fedora", "41", "fedora:41"},
		{"amazonlinux", "2023", "amazonlinux:2023"},
		{"alpine", "3.19", "alpine:3.19"},
		{"arch", "latest", "archlinux:latest"},
		{"rocky", "9", "rockylinux:9"},
		{"centos", "stream9", "quay.io/centos/centos:stream9"},
		{"opensuse", "15.5", "opensuse/leap:15.5"},
	}

	for _, tt := range tests {
		t.Run(tt.distribution+"-"+tt.version, func(t *testing.T) {
			got, err := ImageFor(matrix.ScenarioKey{
				Distribution: tt.distribution,
				Version:      tt.version,
				Architecture: matrix.ArchX8664,
				Libc:         matrix.LibcGlibc,
			})
			if err != nil {
				t.Fatalf("ImageFor() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ImageFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestImageForUnknownDistribution(t *testing.T) {
	_, err := ImageFor(matrix.ScenarioKey{
		Distribution: "slackware",
		Version:      "15.0",
		Architecture: matrix.ArchX8664,
		Libc:         matrix.LibcGlibc,
	})
	if err == nil {
		t.Fatal("ImageFor() should reject an unmapped distribution")
	}
}
