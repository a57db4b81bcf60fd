package midi

// ----- Controller events ----- //

// EventKind tells what a parsed controller message means.
type EventKind int

const (
	EventCC EventKind = iota
	EventNRPN
	EventRPN
	EventIncrement
	EventDecrement
)

func (k EventKind) String() string {
	switch k {
	case EventNRPN:
		return "nrpn"
	case EventRPN:
		return "rpn"
	case EventIncrement:
		return "increment"
	case EventDecrement:
		return "decrement"
	default:
		return "cc"
	}
}

// Event is one result of the controller parser. For EventCC, Param is the controller
// number and Value its 7-bit value. For the parameter kinds, Param is the 14-bit
// parameter number and Value the 14-bit data built from the valid halves.
// Increment and decrement carry the step in Value and NRPN tells the parameter space.
type Event struct {
	Kind     EventKind
	Channel  int
	Param    int
	Value    int
	ValidMSB bool
	ValidLSB bool
	NRPN     bool
}

// ----- Parser ----- //

const (
	parseIdle = iota
	parseNRPNMSB
	parseNRPN
	parseRPNMSB
	parseRPN
)

const (
	ccDataEntryMSB = 6
	ccDataEntryLSB = 38
	ccIncrement    = 96
	ccDecrement    = 97
	ccNRPNLSB      = 98
	ccNRPNMSB      = 99
	ccRPNLSB       = 100
	ccRPNMSB       = 101
	nullParam      = 127
)

type channelState struct {
	state    int
	paramMSB int
	paramLSB int
	valueMSB int
	valueLSB int
	validMSB bool
	validLSB bool
}

func (s *channelState) clearValue() {
	s.valueMSB = 0
	s.valueLSB = 0
	s.validMSB = false
	s.validLSB = false
}

func (s *channelState) param() int {
	return s.paramMSB<<7 | s.paramLSB
}

func (s *channelState) complete() bool {
	return s.state == parseNRPN || s.state == parseRPN
}

func (s *channelState) value() int {
	v := 0
	if s.validMSB {
		v = s.valueMSB << 7
	}
	if s.validLSB {
		v |= s.valueLSB
	}
	return v
}

// Parser turns raw control changes into CC, NRPN and RPN events. It keeps one state
// per channel plus the omni slot 16. It is used by a single goroutine.
type Parser struct {
	channels [17]channelState
}

// NewParser returns a parser with every channel idle.
func NewParser() *Parser {
	return &Parser{}
}

// Parse feeds one control change and appends the resulting events to dst.
func (p *Parser) Parse(dst []Event, ch, num, value int) []Event {
	if ch < 0 || ch >= len(p.channels) {
		return dst
	}
	value = clamp7(value)
	s := &p.channels[ch]
	switch num {
	case ccNRPNMSB:
		s.state = parseNRPNMSB
		s.paramMSB = value
		s.paramLSB = 0
		s.clearValue()
		return dst
	case ccNRPNLSB:
		if s.state != parseNRPNMSB && s.state != parseNRPN {
			// LSB without MSB: the MSB counts as zero
			s.paramMSB = 0
		}
		s.state = parseNRPN
		s.paramLSB = value
		s.clearValue()
		return dst
	case ccRPNMSB:
		if value == nullParam {
			s.state = parseIdle
			s.clearValue()
			return dst
		}
		s.state = parseRPNMSB
		s.paramMSB = value
		s.paramLSB = 0
		s.clearValue()
		return dst
	case ccRPNLSB:
		if value == nullParam {
			s.state = parseIdle
			s.clearValue()
			return dst
		}
		if s.state != parseRPNMSB && s.state != parseRPN {
			s.paramMSB = 0
		}
		s.state = parseRPN
		s.paramLSB = value
		s.clearValue()
		return dst
	case ccDataEntryMSB:
		if s.complete() {
			if s.validMSB {
				s.validLSB = false
			}
			s.valueMSB = value
			s.validMSB = true
			return append(dst, s.event(ch))
		}
		if s.state != parseIdle {
			return dst
		}
	case ccDataEntryLSB:
		if s.complete() {
			s.valueLSB = value
			s.validLSB = true
			return append(dst, s.event(ch))
		}
		if s.state != parseIdle {
			return dst
		}
	case ccIncrement, ccDecrement:
		if s.complete() {
			if value == 0 {
				value = 1
			}
			kind := EventIncrement
			if num == ccDecrement {
				kind = EventDecrement
			}
			return append(dst, Event{
				Kind:    kind,
				Channel: ch,
				Param:   s.param(),
				Value:   value,
				NRPN:    s.state == parseNRPN,
			})
		}
		if s.state != parseIdle {
			return dst
		}
	}
	return append(dst, Event{Kind: EventCC, Channel: ch, Param: num, Value: value, ValidMSB: true})
}

func (s *channelState) event(ch int) Event {
	kind := EventRPN
	if s.state == parseNRPN {
		kind = EventNRPN
	}
	return Event{
		Kind:     kind,
		Channel:  ch,
		Param:    s.param(),
		Value:    s.value(),
		ValidMSB: s.validMSB,
		ValidLSB: s.validLSB,
		NRPN:     kind == EventNRPN,
	}
}

func clamp7(v int) int {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return v
}
