package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	scope := map[string]float64{
		"PV":         100,
		"EXPORT":     30,
		"OWNCONSUME": 50,
		"ELSPECIFIC": 40,
		"HPU":        10,
		"HWH":        5,
		"CPU":        2.5,
	}

	tests := []struct {
		name     string
		src      string
		expected float64
	}{
		{"single identifier", "ELSPECIFIC", 40},
		{"literal", "42", 42},
		{"decimal literal", "0.5", 0.5},
		{"exponent literal", "1e3", 1000},
		{"sum", "ELSPECIFIC + HPU + HWH + CPU", 57.5},
		{"grouped difference", "PV - (EXPORT + OWNCONSUME)", 20},
		{"left associative subtraction", "PV - EXPORT - OWNCONSUME", 20},
		{"division", "PV / 6", 100.0 / 6},
		{"left associative division", "PV / 10 / 2", 5},
		{"precedence", "HPU + HWH * 2", 20},
		{"parentheses", "(HPU + HWH) * 2", 30},
		{"unary minus", "-PV", -100},
		{"double unary", "- -PV", 100},
		{"unary plus", "+PV", 100},
		{"unary in product", "HPU * -2", -20},
		{"whitespace", "  PV\t-\nEXPORT ", 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.src, scope)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestEval_UnknownIdentifier(t *testing.T) {
	_, err := Eval("A + B", map[string]float64{"A": 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownIdentifier))

	var uie *UnknownIdentifierError
	require.True(t, errors.As(err, &uie))
	assert.Equal(t, "B", uie.Name)
}

func TestEval_DivisionByZero(t *testing.T) {
	_, err := Eval("A / B", map[string]float64{"A": 5, "B": 0})
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestCompile_SyntaxErrors(t *testing.T) {
	for _, src := range []string{
		"",
		"A +",
		"(A + B",
		"A + B)",
		"A B",
		"2PV",
		"A ^ B",
		"A % 2",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestExpression_Identifiers(t *testing.T) {
	e, err := Compile("TOTALCONSUMPTION - (OWNCONSUME + IMPORT) + OWNCONSUME * 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"IMPORT", "OWNCONSUME", "TOTALCONSUMPTION"}, e.Identifiers())
	assert.Empty(t, MustCompile("1 + 2").Identifiers())
}

func TestExpression_Reuse(t *testing.T) {
	e := MustCompile("A * 2")
	assert.Equal(t, "A * 2", e.String())

	v, err := e.Eval(map[string]float64{"A": 1})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-9)

	v, err = e.Eval(map[string]float64{"A": 3})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, v, 1e-9)
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("A +") })
}
