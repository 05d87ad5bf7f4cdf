// Package tracing wraps OpenTelemetry spans behind StartSpan and EndSpan.
package tracing
