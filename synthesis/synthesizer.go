package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/ensembleai/ensemble/core"
	"github.com/ensembleai/ensemble/logging"
)

// Synthesizer combines participant outputs into a single final answer.
// The concatenate and vote policies are pure functions over the output
// map; summarize calls back into the orchestrator participant through the
// Invoker.
type Synthesizer struct {
	inv    core.Invoker
	logger logging.Logger
}

// Options configures a Synthesizer.
type Options struct {
	Logger logging.Logger
}

// New constructs a Synthesizer. The invoker is only exercised by the
// summarize policy.
func New(inv core.Invoker, optFns ...func(o *Options)) *Synthesizer {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Synthesizer{inv: inv, logger: opts.Logger}
}

// Synthesize applies the workflow's policy to the gathered outputs.
// Iteration uses completion order throughout so "first output" is
// well-defined and reproducible for a fixed set of completions. An
// unrecognized policy is a programmer error and fails fast.
func (s *Synthesizer) Synthesize(ctx context.Context, policy core.SynthesisPolicy, outputs *core.Outputs, def *core.WorkflowDefinition) (string, error) {
	switch policy {
	case core.SynthesisConcatenate:
		return concatenate(outputs), nil
	case core.SynthesisSummarize:
		return s.summarize(ctx, outputs, def)
	case core.SynthesisVote:
		return vote(outputs), nil
	default:
		return "", core.NewEngineError("synthesize", "unrecognized synthesis policy %q", policy)
	}
}

// concatenate joins all present, successful output texts with a blank
// line separator in completion order. Pure: applying it twice to the same
// outputs yields identical text.
func concatenate(outputs *core.Outputs) string {
	var texts []string
	for _, out := range outputs.All() {
		if out.Succeeded {
			texts = append(texts, out.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// summarize asks the orchestrator participant for a cohesive synthesis of
// all outputs and returns its response verbatim.
func (s *Synthesizer) summarize(ctx context.Context, outputs *core.Outputs, def *core.WorkflowDefinition) (string, error) {
	prompt := fmt.Sprintf(
		"Synthesize these agent responses into a cohesive final answer:\n\n%s\n\nProvide a clear, comprehensive response:",
		FormatOutputs(def, outputs),
	)

	s.logger.Debug("requesting summary synthesis",
		"workflow_id", def.ID, "orchestrator", def.OrchestratorID, "outputs", outputs.Len())

	out, err := s.inv.Invoke(ctx, def.OrchestratorID, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("summary synthesis failed: %w", err)
	}
	return out.Text, nil
}

// vote tallies exact-string-equality frequency across the successful
// output texts and returns the most frequent one, ties broken by
// first-seen order. Two outputs differing only by punctuation are
// distinct votes; there is no semantic clustering.
func vote(outputs *core.Outputs) string {
	counts := make(map[string]int)
	var firstSeen []string

	for _, out := range outputs.All() {
		if !out.Succeeded {
			continue
		}
		if _, ok := counts[out.Text]; !ok {
			firstSeen = append(firstSeen, out.Text)
		}
		counts[out.Text]++
	}

	winner := ""
	best := 0
	for _, text := range firstSeen {
		if counts[text] > best {
			winner = text
			best = counts[text]
		}
	}
	return winner
}

// FormatOutputs renders the outputs for embedding in a synthesis or
// delegation prompt, each labeled by the participant's role (or ID when
// no role is set), in completion order.
func FormatOutputs(def *core.WorkflowDefinition, outputs *core.Outputs) string {
	var lines []string
	for _, out := range outputs.All() {
		label := out.ParticipantID
		if p, ok := def.Participant(out.ParticipantID); ok {
			label = p.Label()
		}
		lines = append(lines, fmt.Sprintf("**%s**: %s", label, out.Text))
	}
	return strings.Join(lines, "\n\n")
}
