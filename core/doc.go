// Package core defines the shared types and seams of the Ensemble
// orchestration engine: workflow definitions, participants, run records,
// the ordered output map, the Invoker boundary to the external agent
// execution service, and the store interfaces implemented by the
// persistence adapters.
//
// The package intentionally contains no execution logic. Strategy
// executors, synthesis, recording and the engine facade live in their own
// packages and depend on core to avoid cyclic imports.
package core
