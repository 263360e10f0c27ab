// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - a single buffered queue of node-internal
// events (state transitions, accepted PoW submissions, seated
// committees) that any in-process listener can drain; not used for
// wire traffic, only for observing what the DS core just did
package messagebus
