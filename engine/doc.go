// Package engine wires the orchestration components together: it
// validates a workflow, records the run, dispatches to the strategy
// executor, synthesizes the final answer and records the terminal state.
//
// The run lifecycle is validate -> Running -> {Completed, Failed,
// Cancelled}. Validation failures abort before any RunRecord is created;
// an unrecognized strategy or synthesis policy is a programmer error that
// fails the run immediately rather than silently defaulting.
package engine
