package expr

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// exprLexer defines the tokens of the arithmetic language.
var exprLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Number", Pattern: `(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},
		{Name: "Operator", Pattern: `[-+*/]`, Action: nil},
		{Name: "Punct", Pattern: `[()]`, Action: nil},
	},
})

var parser = participle.MustBuild[sumNode](
	participle.Lexer(exprLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// sumNode is a chain of additions and subtractions.
type sumNode struct {
	Left  *productNode `parser:"@@"`
	Right []*sumOp     `parser:"@@*"`
}

type sumOp struct {
	Op      string       `parser:"@('+' | '-')"`
	Operand *productNode `parser:"@@"`
}

// productNode is a chain of multiplications and divisions.
type productNode struct {
	Left  *unaryNode   `parser:"@@"`
	Right []*productOp `parser:"@@*"`
}

type productOp struct {
	Op      string     `parser:"@('*' | '/')"`
	Operand *unaryNode `parser:"@@"`
}

type unaryNode struct {
	Sign    string       `parser:"  ( @('-' | '+')"`
	Operand *unaryNode   `parser:"    @@ )"`
	Primary *primaryNode `parser:"| @@"`
}

type primaryNode struct {
	Number *float64 `parser:"  @Number"`
	Ident  *string  `parser:"| @Ident"`
	Group  *sumNode `parser:"| '(' @@ ')'"`
}
