// Package store provides a SQLite-backed log of renders.
//
// Each render row records the patch that produced it (name and content
// hash), the sample rate, the block length and the outcome: a host status
// code plus, for aborted renders, the failing tick and component. The
// recorded tap regions hang off the render in render_taps, one row per tap,
// samples stored as little-endian float64 blobs.
//
// # Ordering
//
//   - Renders are ordered by seq INTEGER (assigned at write time), never by
//     timestamps
//   - Queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//   - Tap rows keep the position they had in the render's tap list
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
