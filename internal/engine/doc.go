// Package engine runs the compilation pipeline that turns a Query IR
// statement into statement text:
//
//  1. Validate the IR; violations fail with INVALID_IR.
//  2. Look up the command cache by (shape hash, null signature, dialect).
//  3. Normalize null semantics against the parameter environment.
//  4. Render the normalized statement with the dialect's generator.
//  5. Store the command when normalization reported it cacheable.
//
// Each compilation gets an ID from the engine's IDGenerator (UUIDv7 by
// default) that tags its log lines.
//
// The stages hold no per-statement state, so one Engine may compile from
// many goroutines at once. Cache access is serialized inside cmdcache.
package engine
