// Copyright 2026 The Latticeproof Authors
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

package runctx

import (
	"sync"
	"time"
)

// Clock abstracts time for testing and production. cegar.Run never
// blocks on it -- there are no suspension points in the driver loop --
// it is used only to stamp RunStats.Duration. Log lines carry the
// logger's own timestamps.
type Clock interface {
	Now() time.Time
}

// RealClock delegates to the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// VirtualClock gives tests a fixed, manually advanced time so
// RunStats.Duration assertions do not depend on wall-clock jitter.
type VirtualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewVirtualClock starts a VirtualClock at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
