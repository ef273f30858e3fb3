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
	"path"
	"path/filepath"
	"strings"
)

// NormalizePath cleans a slash path and removes leading/trailing slashes.
// The root normalizes to "".
func NormalizePath(p string) string {
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	return p
}

// JoinPath joins path components into a normalized path
func JoinPath(parts ...string) string {
	return NormalizePath(path.Join(parts...))
}

// StorePath turns a user supplied path into a store path: rooted at "/",
// with a trailing "/" kept to mean a directory. The root is "/".
func StorePath(arg string) string {
	p := filepath.ToSlash(arg)
	dir := strings.HasSuffix(p, "/")
	p = NormalizePath(p)
	if p == "" {
		return "/"
	}
	if dir {
		return "/" + p + "/"
	}
	return "/" + p
}
