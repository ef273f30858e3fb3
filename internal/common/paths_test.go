// Copyright 2024 LatentFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"root", "/", ""},
		{"dot", ".", ""},
		{"simple", "foo", "foo"},
		{"leading slash", "/foo", "foo"},
		{"trailing slash", "foo/", "foo"},
		{"nested directory", "/foo/bar/", "foo/bar"},
		{"double slashes", "foo//bar", "foo/bar"},
		{"dot segments", "./foo/../bar", "bar"},
		{"escape above root", "../../etc", "etc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizePath(tt.input))
		})
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", JoinPath())
	assert.Equal(t, "foo/bar", JoinPath("foo", "bar"))
	assert.Equal(t, "foo/bar", JoinPath("/foo/", "/bar/"))
	assert.Equal(t, "bar", JoinPath("", "bar"))
}

func TestStorePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"", "/"},
		{".", "/"},
		{"./", "/"},
		{"/", "/"},
		{"src/main.go", "/src/main.go"},
		{"/src/main.go", "/src/main.go"},
		{"src/", "/src/"},
		{"./src/../docs/", "/docs/"},
		{"a//b", "/a/b"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, StorePath(tt.input), tt.input)
	}
}
