package serial

// Action is what the receive handler does with a byte.
type Action int

const (
	// ActionBuffer stores the byte, reception is in progress.
	ActionBuffer Action = iota
	// ActionTerminate ends the reception, the byte is discarded.
	ActionTerminate
	// ActionFilter discards the byte, reception is in progress.
	ActionFilter
	// ActionIgnore discards the byte, reception state is unchanged.
	ActionIgnore
)

// Framing classifies received bytes.
type Framing struct {
	Name       string
	Terminator byte
	// Ignore selects bytes dropped without touching the reception state.
	Ignore func(byte) bool
	// Filter selects bytes dropped while reception continues.
	Filter func(byte) bool
}

// Classify decides the action for a received byte.
func (f *Framing) Classify(b byte) Action {
	switch {
	case b == f.Terminator:
		return ActionTerminate
	case f.Ignore != nil && f.Ignore(b):
		return ActionIgnore
	case f.Filter != nil && f.Filter(b):
		return ActionFilter
	}
	return ActionBuffer
}

// Framing of modem-facing channels: lines end with CR, LF is ignored.
var ModemFraming = Framing{
	Name:       "modem",
	Terminator: '\r',
	Ignore:     func(b byte) bool { return b == '\n' },
}

// Framing of the diagnostics channel: responses end with the '>' prompt and
// only decimal digits are kept.
var DiagnosticsFraming = Framing{
	Name:       "diagnostics",
	Terminator: '>',
	Filter:     func(b byte) bool { return b < '0' || b > '9' },
}

// FramingByName looks up a predefined framing.
func FramingByName(name string) (Framing, bool) {
	switch name {
	case ModemFraming.Name:
		return ModemFraming, true
	case DiagnosticsFraming.Name:
		return DiagnosticsFraming, true
	}
	return Framing{}, false
}
