package engine

import "strings"

// Operator is a comparison operator of a Condition.
type Operator int

// Operators, in declaration order. The zero value is not an operator.
const (
	OpGT  Operator = iota + 1 // observed > value
	OpGTE                     // observed >= value
	OpLT                      // observed < value
	OpLTE                     // observed <= value
	OpEQ                      // observed == value
	OpNEQ                     // observed != value
	OpIN                      // value < observed < value1
	OpTLT                     // value < predicted
	OpTGT                     // value > predicted

	numOperators = int(OpTGT)
)

var operatorNames = [numOperators + 1]string{
	OpGT:  "GT",
	OpGTE: "GTE",
	OpLT:  "LT",
	OpLTE: "LTE",
	OpEQ:  "EQ",
	OpNEQ: "NEQ",
	OpIN:  "IN",
	OpTLT: "TLT",
	OpTGT: "TGT",
}

var operatorAliases = map[string]Operator{
	">":  OpGT,
	">=": OpGTE,
	"<":  OpLT,
	"<=": OpLTE,
	"==": OpEQ,
	"=":  OpEQ,
	"!=": OpNEQ,
}

// Operators returns every defined operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, numOperators)
	for op := OpGT; op <= OpTGT; op++ {
		ops = append(ops, op)
	}
	return ops
}

// ParseOperator parses an operator name (case-insensitive) or one of the
// symbolic aliases >, >=, <, <=, ==, != .
func ParseOperator(s string) (Operator, error) {
	text := strings.TrimSpace(s)
	if op, ok := operatorAliases[text]; ok {
		return op, nil
	}
	upper := strings.ToUpper(text)
	for _, op := range Operators() {
		if operatorNames[op] == upper {
			return op, nil
		}
	}
	return 0, NewUnsupportedOperatorError("", s)
}

// Valid reports whether op is a defined operator.
func (op Operator) Valid() bool {
	return op >= OpGT && op <= OpTGT
}

func (op Operator) String() string {
	if !op.Valid() {
		return "UNKNOWN"
	}
	return operatorNames[op]
}

// NeedsUpperBound reports whether op takes value1.
func (op Operator) NeedsUpperBound() bool {
	return op == OpIN
}

// NeedsPredictionRange reports whether op evaluates a prediction.
func (op Operator) NeedsPredictionRange() bool {
	return op == OpTLT || op == OpTGT
}
