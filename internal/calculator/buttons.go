package calculator

import (
	"errors"
	"fmt"
	"strings"
)

// Operation is a pending binary operator.
type Operation int

const (
	OpNone Operation = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

// Valid reports whether op is one of the four binary operators.
func (op Operation) Valid() bool {
	return op >= OpAdd && op <= OpDivide
}

// Glyph is the operator's character in the expression text.
func (op Operation) Glyph() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return ""
	}
}

func (op Operation) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSubtract:
		return "subtract"
	case OpMultiply:
		return "multiply"
	case OpDivide:
		return "divide"
	default:
		return ""
	}
}

// KeyKind is a button class.
type KeyKind int

const (
	KeyDigit KeyKind = iota + 1
	KeyDecimalPoint
	KeyToggleSign
	KeyPercent
	KeyOperator
	KeyEquals
	KeyClear
)

// Button is one parsed key press.
type Button struct {
	Kind  KeyKind
	Digit byte      // KeyDigit only
	Op    Operation // KeyOperator only
}

func Digit(d byte) Button          { return Button{Kind: KeyDigit, Digit: d} }
func Operator(op Operation) Button { return Button{Kind: KeyOperator, Op: op} }

var (
	DecimalPoint = Button{Kind: KeyDecimalPoint}
	ToggleSign   = Button{Kind: KeyToggleSign}
	Percent      = Button{Kind: KeyPercent}
	Equals       = Button{Kind: KeyEquals}
	Clear        = Button{Kind: KeyClear}
)

// ErrUnknownButton is returned by ParseButton for names outside the keypad.
var ErrUnknownButton = errors.New("unknown button")

var namedButtons = map[string]Button{
	".":        DecimalPoint,
	"decimal":  DecimalPoint,
	"+/-":      ToggleSign,
	"±":        ToggleSign,
	"sign":     ToggleSign,
	"%":        Percent,
	"percent":  Percent,
	"+":        Operator(OpAdd),
	"add":      Operator(OpAdd),
	"-":        Operator(OpSubtract),
	"subtract": Operator(OpSubtract),
	"*":        Operator(OpMultiply),
	"x":        Operator(OpMultiply),
	"×":        Operator(OpMultiply),
	"multiply": Operator(OpMultiply),
	"/":        Operator(OpDivide),
	"÷":        Operator(OpDivide),
	"divide":   Operator(OpDivide),
	"=":        Equals,
	"equals":   Equals,
	"ac":       Clear,
	"c":        Clear,
	"clear":    Clear,
}

// ParseButton maps a key label such as "7", "+", "divide" or "AC" to a
// Button. Matching is case-insensitive.
func ParseButton(name string) (Button, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return Digit(key[0]), nil
	}
	if b, ok := namedButtons[key]; ok {
		return b, nil
	}
	return Button{}, fmt.Errorf("%w: %q", ErrUnknownButton, name)
}

// String returns the canonical label used in metrics and span names.
func (b Button) String() string {
	switch b.Kind {
	case KeyDigit:
		return string(b.Digit)
	case KeyDecimalPoint:
		return "decimal"
	case KeyToggleSign:
		return "sign"
	case KeyPercent:
		return "percent"
	case KeyOperator:
		return b.Op.String()
	case KeyEquals:
		return "equals"
	case KeyClear:
		return "clear"
	default:
		return "unknown"
	}
}
