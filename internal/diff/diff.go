package diff

import "fmt"

// Op is an operation from sequence a to sequence b.
type Op int

// Operations from sequence a to sequence b.
const (
	OpEqual Op = iota
	OpInsert
	OpDelete
	OpReplace
)

func (o Op) String() string {
	switch o {
	case OpEqual:
		return "equal"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpReplace:
		return "replace"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Opcode turns a[I1:I2] into b[J1:J2].
type Opcode struct {
	Op     Op
	I1, I2 int // range in a
	J1, J2 int // range in b
}

// Algorithm selects how opcodes are computed.
type Algorithm int

const (
	AlgorithmSequence Algorithm = iota // difflib SequenceMatcher (longest matching blocks).
	AlgorithmMyers                     // Myers diff, with adjacent deletes/inserts merged into replaces.
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmSequence:
		return "sequence"
	case AlgorithmMyers:
		return "myers"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm parses "sequence" or "myers". The empty string is AlgorithmSequence.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "sequence":
		return AlgorithmSequence, nil
	case "myers":
		return AlgorithmMyers, nil
	}
	return AlgorithmSequence, fmt.Errorf("unknown diff algorithm %q (want \"sequence\" or \"myers\")", s)
}

// DefaultLineThreshold is the similarity at or below which a pair of replaced lines is shown as a whole deleted line and a whole inserted line instead of a character
// diff.
const DefaultLineThreshold = 0.5

// Differ renders diffs with a fixed algorithm and line threshold. The zero value uses AlgorithmSequence and a line threshold of 0 (always character-diff paired lines);
// use Default for the usual settings.
type Differ struct {
	Algorithm     Algorithm
	LineThreshold float64
}

// Default is the Differ used by the package-level Span and Lines.
var Default = Differ{Algorithm: AlgorithmSequence, LineThreshold: DefaultLineThreshold}
