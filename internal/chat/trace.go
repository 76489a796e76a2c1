package chat

import "fmt"

// TraceView tells the panel whether and where to draw the reasoning trace.
type TraceView struct {
	Attached bool
	// MessageIndex is the transcript entry the trace is drawn above.
	MessageIndex int
	Steps        []ReasoningStep
	// Expanded controls only the step list; the header is always drawn.
	Expanded bool
}

// PresentTrace derives the trace placement from a snapshot. It must be
// re-evaluated after every change: a stale trace disappears as soon as the
// next turn goes pending.
func PresentTrace(s State) TraceView {
	if len(s.LatestTrace) == 0 || s.Pending || len(s.Transcript) == 0 {
		return TraceView{}
	}
	if s.Transcript[len(s.Transcript)-1].Role != RoleAssistant {
		return TraceView{}
	}
	idx := s.TraceIndex
	if idx < 0 || idx >= len(s.Transcript) || s.Transcript[idx].Role != RoleAssistant {
		return TraceView{}
	}
	return TraceView{
		Attached:     true,
		MessageIndex: idx,
		Steps:        s.LatestTrace,
		Expanded:     s.TraceExpanded,
	}
}

// Summary returns a one-line description for the trace header.
func (v TraceView) Summary() string {
	if len(v.Steps) == 1 {
		return "1 reasoning step"
	}
	return fmt.Sprintf("%d reasoning steps", len(v.Steps))
}
