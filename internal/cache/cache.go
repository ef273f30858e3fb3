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

// Package cache provides the caches that sit in front of host stores.
//
// The overlay itself never caches. Caching lives in the layer that owns
// the data, and cached values are shared between callers, so consumers
// must treat them as read-only.
//
// Currently provides:
// - StatCache: TTL-based stat cache with fine-grained invalidation
package cache

import "os"

// Disabled controls whether all caching mechanisms are disabled.
// Set via PATCHFS_CACHE=0 environment variable.
// When true:
// - StatCache.Get() always reports a miss
// - StatCache.Set() is a no-op
//
// Useful to check that results do not depend on cache state.
var Disabled = os.Getenv("PATCHFS_CACHE") == "0"

// Invalidator is implemented by all caches that support full invalidation.
type Invalidator interface {
	// Invalidate clears all entries from the cache.
	Invalidate()
}
