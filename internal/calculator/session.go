package calculator

import (
	"context"
	"math"
	"strconv"
	"strings"
)

// Mode is the session's input mode. It replaces the waitingForOperand /
// equalsClicked / error flag combination with one value.
type Mode int

const (
	// ModeEntering: an operand is being typed (or the session is at rest).
	ModeEntering Mode = iota
	// ModePendingOperator: an operator was accepted and no digit followed yet.
	ModePendingOperator
	// ModeResult: the last equals produced a result.
	ModeResult
	// ModeFailed: the last equals was rejected by the gateway.
	ModeFailed
)

func (m Mode) String() string {
	switch m {
	case ModeEntering:
		return "entering"
	case ModePendingOperator:
		return "pending_operator"
	case ModeResult:
		return "result"
	case ModeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	restValue     = "0"
	errorOperand  = "Error"
	decimalPoint  = "."
	decimalOnZero = "0."
)

// DefaultUnknownErrorMessage is shown when a gateway failure carries no
// bracketed prefix.
const DefaultUnknownErrorMessage = "unknown error"

// Session is one calculator view's input state. It is not safe for
// concurrent use; Store serializes access per session.
type Session struct {
	gateway        Gateway
	unknownMessage string

	expression string
	operand    string
	operation  Operation
	mode       Mode
	err        string

	// [start, end) of the current operand inside expression. Empty in
	// ModeResult and ModeFailed.
	start, end int
}

// Option configures a Session.
type Option func(*Session)

// WithUnknownErrorMessage replaces DefaultUnknownErrorMessage.
func WithUnknownErrorMessage(msg string) Option {
	return func(s *Session) {
		if strings.TrimSpace(msg) != "" {
			s.unknownMessage = msg
		}
	}
}

// NewSession returns a cleared session that evaluates through gw. A
// gateway is required; NewSession panics if gw is nil.
func NewSession(gw Gateway, opts ...Option) *Session {
	if gw == nil {
		panic("calculator: NewSession called with a nil Gateway")
	}
	s := &Session{
		gateway:        gw,
		unknownMessage: DefaultUnknownErrorMessage,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Clear()
	return s
}

func (s *Session) Expression() string     { return s.expression }
func (s *Session) CurrentOperand() string { return s.operand }
func (s *Session) Operation() Operation   { return s.operation }
func (s *Session) Mode() Mode             { return s.mode }

// WaitingForOperand reports whether an operator was just accepted.
func (s *Session) WaitingForOperand() bool { return s.mode == ModePendingOperator }

// EqualsClicked reports whether the last evaluating action was equals.
func (s *Session) EqualsClicked() bool {
	return s.mode == ModeResult || s.mode == ModeFailed
}

// Error returns the extracted failure message of the last evaluation.
func (s *Session) Error() (string, bool) {
	if s.mode != ModeFailed {
		return "", false
	}
	return s.err, true
}

// Clear resets the session to its defaults.
func (s *Session) Clear() {
	s.expression = restValue
	s.operand = restValue
	s.operation = OpNone
	s.mode = ModeEntering
	s.err = ""
	s.start, s.end = 0, len(restValue)
}

// InputDigit handles a 0-9 key. Any other byte is ignored.
func (s *Session) InputDigit(d byte) {
	if d < '0' || d > '9' {
		return
	}
	digit := string(d)

	if s.EqualsClicked() {
		s.Clear()
	}

	switch {
	case s.mode == ModePendingOperator:
		s.operand = digit
		s.mode = ModeEntering
		s.start = len(s.expression)
		s.expression += digit
	case s.expression == restValue:
		s.operand = withoutLeadingZero(s.operand, digit)
		s.start = 0
		s.expression = digit
	default:
		s.operand = withoutLeadingZero(s.operand, digit)
		s.expression += digit
	}
	s.end = len(s.expression)
}

func withoutLeadingZero(operand, digit string) string {
	if operand == restValue {
		return digit
	}
	return operand + digit
}

// InputDecimalPoint handles the "." key. A second point in the same
// operand is ignored.
func (s *Session) InputDecimalPoint() {
	switch {
	case s.EqualsClicked():
		s.Clear()
		s.operand = decimalOnZero
		s.expression = decimalOnZero
		s.start = 0
	case s.mode == ModePendingOperator:
		s.operand = decimalOnZero
		s.mode = ModeEntering
		s.start = len(s.expression)
		s.expression += decimalOnZero
	case !strings.Contains(s.operand, decimalPoint):
		s.operand += decimalPoint
		s.expression += decimalPoint
	default:
		return
	}
	s.end = len(s.expression)
}

// ToggleSign negates the current operand.
func (s *Session) ToggleSign() {
	s.rewriteOperand(func(v float64) float64 { return v * -1 })
}

// ApplyPercent divides the current operand by 100.
func (s *Session) ApplyPercent() {
	s.rewriteOperand(func(v float64) float64 { return v / 100 })
}

// rewriteOperand applies f to the operand's numeric value and patches the
// operand's span inside the expression. Earlier occurrences of the same
// text are left alone.
func (s *Session) rewriteOperand(f func(float64) float64) {
	if s.mode == ModeFailed {
		return
	}
	v, err := strconv.ParseFloat(s.operand, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return
	}
	next := FormatNumber(f(v))
	s.operand = next

	if s.mode == ModeResult {
		return
	}
	s.expression = s.expression[:s.start] + next + s.expression[s.end:]
	s.end = s.start + len(next)
}

// SetOperation accepts an operator key. Pressing operators back to back
// keeps only the last one.
func (s *Session) SetOperation(op Operation) {
	if !op.Valid() {
		return
	}
	glyph := op.Glyph()

	switch s.mode {
	case ModePendingOperator:
		// Swap the trailing glyph; the left operand span is untouched.
		s.expression = s.expression[:len(s.expression)-1] + glyph
	case ModeFailed:
		s.Clear()
		s.expression = s.operand + glyph
		s.start, s.end = 0, len(s.operand)
	case ModeResult:
		s.expression = s.operand + glyph
		s.start, s.end = 0, len(s.operand)
	default:
		if s.expression == restValue {
			s.expression = s.operand
			s.start, s.end = 0, len(s.operand)
		}
		s.expression += glyph
	}

	s.err = ""
	s.mode = ModePendingOperator
	s.operation = op
}

// Equals submits the expression to the gateway. It returns false without
// touching the session when the expression is incomplete.
func (s *Session) Equals(ctx context.Context) bool {
	if s.mode == ModePendingOperator || s.operation == OpNone {
		return false
	}

	result, err := s.gateway.Evaluate(ctx, s.expression)
	if err != nil {
		s.mode = ModeFailed
		s.err = ExtractMessage(err, s.unknownMessage)
		s.operand = errorOperand
	} else {
		s.mode = ModeResult
		s.err = ""
		s.operand = result
	}
	s.start, s.end = 0, 0
	return true
}

// Press dispatches one button event. It reports whether the gateway was
// called.
func (s *Session) Press(ctx context.Context, b Button) bool {
	switch b.Kind {
	case KeyDigit:
		s.InputDigit(b.Digit)
	case KeyDecimalPoint:
		s.InputDecimalPoint()
	case KeyToggleSign:
		s.ToggleSign()
	case KeyPercent:
		s.ApplyPercent()
	case KeyOperator:
		s.SetOperation(b.Op)
	case KeyEquals:
		return s.Equals(ctx)
	case KeyClear:
		s.Clear()
	}
	return false
}

// State is an immutable snapshot of a session.
type State struct {
	Expression        string
	CurrentOperand    string
	Operation         Operation
	Mode              Mode
	WaitingForOperand bool
	EqualsClicked     bool
	Error             string
	HasError          bool
}

// Snapshot copies the observable fields of s.
func (s *Session) Snapshot() State {
	msg, failed := s.Error()
	return State{
		Expression:        s.expression,
		CurrentOperand:    s.operand,
		Operation:         s.operation,
		Mode:              s.mode,
		WaitingForOperand: s.WaitingForOperand(),
		EqualsClicked:     s.EqualsClicked(),
		Error:             msg,
		HasError:          failed,
	}
}

// FormatNumber renders v as the shortest plain decimal text. Negative zero
// prints as "0".
func FormatNumber(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
