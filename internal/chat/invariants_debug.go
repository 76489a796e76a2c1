//go:build crmassist_debug

package chat

import "fmt"

// checkInvariants panics when the conversation is left in a state no caller
// should be able to produce. Only compiled with -tags crmassist_debug.
func (c *Conversation) checkInvariants() {
	if c.pending != (c.current != nil) {
		panic(fmt.Sprintf("chat: pending=%v but in-flight turn=%v", c.pending, c.current != nil))
	}
	if c.current != nil && len(c.transcript) < c.current.baseLen {
		panic(fmt.Sprintf("chat: transcript shrank to %d below %d", len(c.transcript), c.current.baseLen))
	}
	if c.traceIndex >= len(c.transcript) {
		panic(fmt.Sprintf("chat: trace index %d out of range %d", c.traceIndex, len(c.transcript)))
	}
}
