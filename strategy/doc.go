// Package strategy implements the four coordination strategies of the
// orchestration engine: Sequential, Parallel, Conditional and
// Hierarchical. Each executor consumes a validated workflow definition
// plus the user query and produces an insertion-ordered map of
// per-participant outputs.
//
// The strategy set is fixed and small, so dispatch is a closed switch in
// For rather than an open, runtime-registered table; an unrecognized
// strategy is a programmer error surfaced as core.EngineError.
package strategy
