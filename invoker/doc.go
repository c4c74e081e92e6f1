// Package invoker adapts the engine's Invoker seam onto the model
// execution layer. It resolves a participant ID to a registered model,
// formats prior-participant context into the prompt, enforces a per-call
// timeout and walks a bounded fallback chain of alternate models. The
// orchestration core stays free of any knowledge of LLM providers.
package invoker
