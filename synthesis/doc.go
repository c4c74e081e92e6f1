// Package synthesis combines per-participant outputs into one final
// answer according to the workflow's configured policy: concatenate,
// summarize (via the orchestrator participant) or vote. The Hierarchical
// strategy never reaches this package; its orchestrator synthesizes the
// final answer itself.
package synthesis
