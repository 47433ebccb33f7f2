package diff

import (
	"fmt"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Opcodes returns opcodes turning a into b using alg.
func Opcodes(a, b []string, alg Algorithm) []Opcode {
	var ops []Opcode
	switch alg {
	case AlgorithmMyers:
		ops = myersOpcodes(a, b)
	default:
		ops = sequenceOpcodes(a, b)
	}
	if err := validateOpcodes(ops, a, b); err != nil {
		panic(fmt.Errorf("Opcodes(%v): validate failed with %v", alg, err))
	}
	return ops
}

// Ratio is the similarity of two sequences of length la and lb given their opcodes: twice the number of matched elements over the total number of elements. Two
// empty sequences have ratio 1.
func Ratio(ops []Opcode, la, lb int) float64 {
	if la+lb == 0 {
		return 1
	}
	matched := 0
	for _, op := range ops {
		if op.Op == OpEqual {
			matched += op.I2 - op.I1
		}
	}
	return 2 * float64(matched) / float64(la+lb)
}

func sequenceOpcodes(a, b []string) []Opcode {
	codes := difflib.NewMatcher(a, b).GetOpCodes()
	ops := make([]Opcode, 0, len(codes))
	for _, c := range codes {
		var op Op
		switch c.Tag {
		case 'e':
			op = OpEqual
		case 'd':
			op = OpDelete
		case 'i':
			op = OpInsert
		case 'r':
			op = OpReplace
		default:
			panic(fmt.Errorf("unexpected difflib tag %q", c.Tag))
		}
		ops = append(ops, Opcode{Op: op, I1: c.I1, I2: c.I2, J1: c.J1, J2: c.J2})
	}
	return ops
}

func myersOpcodes(a, b []string) []Opcode {
	ra, rb := internRunes(a, b)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // deterministic output; inputs are small
	diffs := dmp.DiffMainRunes(ra, rb, false)

	var ops []Opcode
	var i, j, dels, ins int

	// flush emits the pending run of deletes/inserts as a single opcode.
	flush := func() {
		if dels == 0 && ins == 0 {
			return
		}
		op := OpReplace
		switch {
		case ins == 0:
			op = OpDelete
		case dels == 0:
			op = OpInsert
		}
		ops = append(ops, Opcode{Op: op, I1: i, I2: i + dels, J1: j, J2: j + ins})
		i += dels
		j += ins
		dels, ins = 0, 0
	}

	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			if len(ops) > 0 && ops[len(ops)-1].Op == OpEqual {
				ops[len(ops)-1].I2 += n
				ops[len(ops)-1].J2 += n
			} else {
				ops = append(ops, Opcode{Op: OpEqual, I1: i, I2: i + n, J1: j, J2: j + n})
			}
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			dels += n
		case diffmatchpatch.DiffInsert:
			ins += n
		}
	}
	flush()
	return ops
}

// internRunes maps every distinct element of a and b to a rune, so that diffmatchpatch can diff arbitrary tokens. Surrogate code points are skipped because they do
// not survive the rune -> string -> rune round trip diffmatchpatch performs.
func internRunes(a, b []string) ([]rune, []rune) {
	ids := make(map[string]rune)
	next := rune(1)
	conv := func(seq []string) []rune {
		out := make([]rune, len(seq))
		for k, s := range seq {
			id, ok := ids[s]
			if !ok {
				if next == 0xD800 {
					next = 0xE000
				}
				id = next
				next++
				ids[s] = id
			}
			out[k] = id
		}
		return out
	}
	return conv(a), conv(b)
}
