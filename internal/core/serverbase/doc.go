// SPDX-License-Identifier: MPL-2.0

// Package serverbase provides the lifecycle state machine shared by fxbridge's
// network servers: command-listener incarnations, the status feed, and the SSH
// console.
//
// It bundles lock-free state reads, CAS transitions, goroutine tracking,
// context-based cancellation and a done signal for joiners.
package serverbase
