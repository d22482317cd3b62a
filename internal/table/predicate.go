package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AngelCh415/insights-dashboard/internal/models"
)

type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpGreater  Operator = "greater"
	OpLess     Operator = "less"
)

var (
	ErrUnknownOperator  = errors.New("unknown operator")
	ErrNonNumericColumn = errors.New("numeric operator on non-numeric column")
	ErrMalformedFilter  = errors.New("malformed filter")
)

func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpEquals, OpContains, OpGreater, OpLess:
		return op, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

func (o Operator) Numeric() bool { return o == OpGreater || o == OpLess }

// Predicate restricts rows by one column. Several predicates are ANDed.
type Predicate struct {
	Column   Column   `json:"column"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// NewPredicate builds a predicate from trusted input and rejects
// combinations that can never match.
func NewPredicate(col Column, op Operator, value string) (Predicate, error) {
	if _, err := ParseColumn(string(col)); err != nil {
		return Predicate{}, err
	}
	if _, err := ParseOperator(string(op)); err != nil {
		return Predicate{}, err
	}
	if op.Numeric() && !col.Numeric() {
		return Predicate{}, fmt.Errorf("%w: %s %s", ErrNonNumericColumn, col, op)
	}
	return Predicate{Column: col, Operator: op, Value: value}, nil
}

// ParsePredicate reads "column:operator:value" from untrusted input. Only
// syntax, column and operator are checked; a numeric operator on a text
// column is kept and simply matches nothing.
func ParsePredicate(s string) (Predicate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Predicate{}, fmt.Errorf("%w: %q (want column:operator:value)", ErrMalformedFilter, s)
	}
	col, err := ParseColumn(parts[0])
	if err != nil {
		return Predicate{}, err
	}
	op, err := ParseOperator(parts[1])
	if err != nil {
		return Predicate{}, err
	}
	return Predicate{Column: col, Operator: op, Value: parts[2]}, nil
}

func (p Predicate) String() string {
	return string(p.Column) + ":" + string(p.Operator) + ":" + p.Value
}

// Match never fails: anything it cannot evaluate is a non-match.
func (p Predicate) Match(r models.Campaign) bool {
	v := ValueOf(r, p.Column)
	switch p.Operator {
	case OpEquals:
		return strings.ToLower(v.String()) == strings.ToLower(p.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(v.String()), strings.ToLower(p.Value))
	case OpGreater, OpLess:
		if v.Kind != KindNumber {
			return false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
		if err != nil {
			return false
		}
		if p.Operator == OpGreater {
			return v.Num > f
		}
		return v.Num < f
	}
	return false
}
