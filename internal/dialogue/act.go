// Package dialogue is the per-call state machine: it consumes NLU output
// plus session history and decides the next dialogue act. It is the only
// component that mutates session state.
package dialogue

// ActType enumerates the abstract dialogue acts the telephony rendering
// layer turns into provider-specific voice instructions.
type ActType string

const (
	ActSpeak    ActType = "speak"    // say text, keep listening
	ActAsk      ActType = "ask"      // say text, expect a caller reply
	ActTransfer ActType = "transfer" // hand off to a human
	ActHangup   ActType = "hangup"   // end the call
)

// Act is one rendered next step for the call.
type Act struct {
	Type   ActType `json:"action"`
	Text   string  `json:"text,omitempty"`
	Target string  `json:"target,omitempty"` // transfer destination
}

func Speak(text string) Act     { return Act{Type: ActSpeak, Text: text} }
func Ask(text string) Act       { return Act{Type: ActAsk, Text: text} }
func Hangup(text string) Act    { return Act{Type: ActHangup, Text: text} }
func Transfer(target, text string) Act {
	return Act{Type: ActTransfer, Target: target, Text: text}
}
