// Package idgen generates the correlation identifiers that tie nested tree
// operations to the single lock acquisition of their top-level call. It lives
// under `internal` because callers should treat identifiers as opaque strings.
package idgen
