// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package lfsync

// RaceEnabled is true when the race detector is active.
// Tests use it to skip concurrent stress of the generic queues: the slot
// data is ordered by acquire/release on a separate ticket or counter,
// which the detector cannot observe.
const RaceEnabled = true
