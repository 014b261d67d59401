// Package yamlnode parses a recipe YAML document into a span-preserving raw
// node tree (spec.md §4.1, component A). It distinguishes mapping /
// sequence / scalar / conditional branches, and leaves every leaf scalar
// string untouched so the template engine later sees exact user input.
package yamlnode

import (
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/archlayer/pkgforge/diag"
)

// Kind identifies the shape of a parsed node.
type Kind int

const (
	KindScalar Kind = iota
	KindMapping
	KindSequence
	KindConditional
	KindNull
)

// Node is a raw, span-tracked YAML node. Exactly one of the Kind-specific
// fields is populated depending on Kind.
type Node struct {
	Kind Kind
	Span diag.Span

	Scalar string // KindScalar: verbatim source text of the leaf

	Mapping []MapEntry // KindMapping, in document order
	Seq     []*Node    // KindSequence

	// KindConditional: the special `{if: <expr>, then: <body>, else?: <body>}`
	// mapping shape, recognized wherever a mapping appears (as a sequence
	// item or directly as a mapping value).
	Cond *Conditional
}

// MapEntry is a single key/value pair of a mapping node, keeping document
// order because Stage-0 `context:` entries may reference earlier ones.
type MapEntry struct {
	Key     string
	KeySpan diag.Span
	Value   *Node
}

// Conditional is the parsed `{if, then, else}` shape.
type Conditional struct {
	Cond     string
	CondSpan diag.Span
	Then     *Node
	Else     *Node
}

// Load parses dt (a recipe YAML document) into a raw [Node] tree, hardening
// duplicate-key and coercion mistakes into errors as required by spec.md
// §4.1. filename is used only for diagnostic spans.
func Load(filename string, dt []byte) (*Node, error) {
	f, err := parser.ParseBytes(dt, parser.ParseComments)
	if err != nil {
		return nil, diag.Wrap(diag.KindSchema, diag.Span{File: filename}, err, "failed to parse yaml")
	}
	if len(f.Docs) == 0 {
		return &Node{Kind: KindNull}, nil
	}
	return fromAST(filename, f.Docs[0].Body)
}

func spanOf(filename string, n ast.Node) diag.Span {
	tok := n.GetToken()
	if tok == nil || tok.Position == nil {
		return diag.Span{File: filename}
	}
	start := tok.Position
	end := endPosition(n)
	return diag.Span{
		File:      filename,
		StartLine: start.Line,
		StartCol:  start.Column,
		EndLine:   end.line,
		EndCol:    end.col,
	}
}

type pos struct{ line, col int }

// endPosition walks n to find the furthest-along token, mirroring
// Azure-dalec/sourcemap.go's endPosVisitor which computes an end position
// from an AST subtree (there targeting buildkit's pb.Range, here a
// transport-agnostic diag.Span).
func endPosition(n ast.Node) pos {
	var end pos
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		if node == nil {
			return
		}
		tok := node.GetToken()
		if tok != nil && tok.Position != nil {
			if tok.Position.Line >= end.line {
				end.line = tok.Position.Line
				col := tok.Position.Column
				if node.Type() == ast.StringType {
					col += len(tok.Value)
				}
				end.col = col
			}
		}
		for _, c := range children(node) {
			walk(c)
		}
	}
	walk(n)
	if end.line == 0 {
		tok := n.GetToken()
		if tok != nil && tok.Position != nil {
			return pos{tok.Position.Line, tok.Position.Column}
		}
	}
	return end
}

func children(n ast.Node) []ast.Node {
	switch v := n.(type) {
	case *ast.MappingNode:
		out := make([]ast.Node, 0, len(v.Values))
		for _, mv := range v.Values {
			out = append(out, mv)
		}
		return out
	case *ast.MappingValueNode:
		return []ast.Node{v.Key, v.Value}
	case *ast.SequenceNode:
		return v.Values
	}
	return nil
}

func fromAST(filename string, n ast.Node) (*Node, error) {
	if n == nil {
		return &Node{Kind: KindNull}, nil
	}
	switch v := n.(type) {
	case *ast.MappingNode:
		return mappingFromAST(filename, v)
	case *ast.MappingValueNode:
		// A mapping with a single key is sometimes parsed as a bare
		// MappingValueNode rather than a MappingNode of length 1.
		return mappingFromAST(filename, &ast.MappingNode{
			BaseNode: v.BaseNode,
			Values:   []*ast.MappingValueNode{v},
		})
	case *ast.SequenceNode:
		// The `{if:, then:, else?:}` shape is detected inside fromAST's
		// MappingNode/MappingValueNode cases above, so a conditional
		// appearing as a sequence item is already converted by the time
		// it reaches this loop.
		seq := make([]*Node, 0, len(v.Values))
		for _, item := range v.Values {
			child, err := fromAST(filename, item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, child)
		}
		return &Node{Kind: KindSequence, Span: spanOf(filename, v), Seq: seq}, nil
	case *ast.NullNode:
		return &Node{Kind: KindNull, Span: spanOf(filename, v)}, nil
	default:
		return &Node{Kind: KindScalar, Span: spanOf(filename, n), Scalar: scalarText(n)}, nil
	}
}

func scalarText(n ast.Node) string {
	if s, ok := n.(*ast.StringNode); ok {
		return s.Value
	}
	return n.String()
}

func mappingFromAST(filename string, v *ast.MappingNode) (*Node, error) {
	if cond, ok := asConditionalMapping(filename, v); ok {
		return cond, nil
	}

	seen := make(map[string]diag.Span, len(v.Values))
	entries := make([]MapEntry, 0, len(v.Values))
	for _, mv := range v.Values {
		key := scalarText(mv.Key)
		keySpan := spanOf(filename, mv.Key)
		if prev, ok := seen[key]; ok {
			return nil, diag.New(diag.KindSchema, keySpan,
				"duplicate key %q (first defined at %s)", key, prev)
		}
		seen[key] = keySpan

		val, err := fromAST(filename, mv.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: key, KeySpan: keySpan, Value: val})
	}
	return &Node{Kind: KindMapping, Span: spanOf(filename, v), Mapping: entries}, nil
}

func asConditionalMapping(filename string, m *ast.MappingNode) (*Node, bool) {
	var condVal *ast.MappingValueNode
	var thenVal, elseVal *ast.MappingValueNode
	for _, mv := range m.Values {
		switch scalarText(mv.Key) {
		case "if":
			condVal = mv
		case "then":
			thenVal = mv
		case "else":
			elseVal = mv
		default:
			return nil, false
		}
	}
	if condVal == nil {
		return nil, false
	}
	if thenVal == nil {
		return nil, false
	}
	if condVal.Key.Type() == ast.NullType {
		return nil, false
	}
	condExpr := scalarText(condVal.Value)
	thenNode, err := fromAST(filename, thenVal.Value)
	if err != nil {
		return nil, false
	}
	var elseNode *Node
	if elseVal != nil {
		elseNode, err = fromAST(filename, elseVal.Value)
		if err != nil {
			return nil, false
		}
	}
	return &Node{
		Kind: KindConditional,
		Span: spanOf(filename, m),
		Cond: &Conditional{
			Cond:     condExpr,
			CondSpan: spanOf(filename, condVal.Value),
			Then:     thenNode,
			Else:     elseNode,
		},
	}, true
}

// MalformedConditionalError reports a `{if:...}` mapping missing `then` or
// whose `if` is not a scalar, matching spec.md §4.1's named error.
func MalformedConditionalError(span diag.Span, reason string) error {
	return diag.New(diag.KindSchema, span, "malformed conditional: %s", reason)
}

// Validate performs the structural checks spec.md §4.1 requires beyond what
// parsing itself catches: it is exposed separately so callers that decode
// straight into typed stage0 values can still run it against the raw tree
// for better diagnostics.
func Validate(n *Node) error {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindConditional:
		if n.Cond == nil {
			return MalformedConditionalError(n.Span, "missing 'then'")
		}
		if err := Validate(n.Cond.Then); err != nil {
			return err
		}
		return Validate(n.Cond.Else)
	case KindMapping:
		for _, e := range n.Mapping {
			if err := Validate(e.Value); err != nil {
				return err
			}
		}
	case KindSequence:
		for _, c := range n.Seq {
			if err := Validate(c); err != nil {
				return err
			}
		}
	}
	return nil
}
