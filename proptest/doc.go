// Package proptest is a property-based testing engine built on choice
// sequences.
//
// A Strategy turns a sequence of bounded integer choices into a value.
// During generation the choices come from a seeded pseudo-random source;
// once a property fails, the recorded sequence is shrunk toward the
// shortlex-smallest sequence that still fails the same way, and the value
// it replays to is reported.
//
// Because every value is a pure function of its choices, a failure is fully
// described by its choice sequence: pass it to Replay or Reproduce, or rerun
// the test with PROPTEST_SEED set to the reported seed.
//
// Runs that cannot make progress are reported rather than looping: a
// strategy that can never produce a valid value returns ErrUnsatisfiable,
// and one that only rarely does fails a health check.
package proptest
