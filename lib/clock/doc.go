// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Structs that measure elapsed time hold a Clock field instead of
// calling time.Now directly:
//
//	h := &Handler{clock: clock.Real()}
//
// Tests substitute a FakeClock and move it explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c.Advance(5 * time.Second)
package clock
