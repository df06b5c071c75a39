// Package vm implements the jcore execution core.
//
// This package contains:
//   - Typed values and type descriptors with explicit widening
//   - Arrays with checked element stores and bulk copy
//   - Class linking, resolution tables and instance tests
//   - A bytecode interpreter with dense, sparse and string-keyed switches
//   - Structured exception regions with ordered filters and finally blocks
//   - Reflective constructor and field lookup
//
// Class metadata arrives as ClassDef values from a front end. Link turns a
// set of definitions (plus the built-in system library) into a read-only
// ClassTable that any number of interpreters may share.
package vm
