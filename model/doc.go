// Package model defines the text-completion seam backing the agent
// execution service adapter, plus a deterministic MockModel for tests and
// examples. Provider-specific implementations live in the anthropic and
// openai subpackages; the orchestration core never imports them directly.
package model
