// Package ir provides the value and catalog types shared by every relq package.
//
// This package contains type definitions and their canonical encoding only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Constant and parameter values are IRValue, a sealed set of variants
//   - No binary floats: fractional numbers are carried as IRDecimal
//   - Canonical encoding follows RFC 8785 key ordering with NFC strings
//   - Hashes are domain-separated so shape and command keys never collide
package ir
