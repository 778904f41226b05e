// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"slices"
	"testing"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []EngineType
		wantErr bool
	}{
		{
			name:  "finch first",
			input: "finch,podman,docker",
			want:  []EngineType{EngineTypeFinch, EngineTypePodman, EngineTypeDocker},
		},
		{
			name:  "docker first with spaces",
			input: "docker, finch",
			want:  []EngineType{EngineTypeDocker, EngineTypeFinch},
		},
		{
			name:  "empty means default",
			input: "",
			want:  nil,
		},
		{
			name:    "unknown runtime",
			input:   "docker,containerd",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePriority(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePriority(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !slices.Equal(got, tt.want) {
				t.Errorf("ParsePriority(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEngineType_Validate(t *testing.T) {
	for _, valid := range []EngineType{EngineTypeDocker, EngineTypeFinch, EngineTypePodman} {
		if err := valid.Validate(); err != nil {
			t.Errorf("Validate(%s) = %v, want nil", valid, err)
		}
	}
	if err := EngineType("lxc").Validate(); !errors.Is(err, ErrInvalidEngineType) {
		t.Errorf("Validate(lxc) = %v, want ErrInvalidEngineType", err)
	}
}

func TestNew_UnknownType(t *testing.T) {
	if _, err := New(EngineType("bogus")); !errors.Is(err, ErrInvalidEngineType) {
		t.Errorf("New(bogus) error = %v, want ErrInvalidEngineType", err)
	}
}
