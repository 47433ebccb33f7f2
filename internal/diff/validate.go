package diff

import "fmt"

// validateOpcodes checks that ops partition a and b and returns an error on the first violation.
func validateOpcodes(ops []Opcode, a, b []string) error {
	i, j := 0, 0
	for k, op := range ops {
		if op.I1 != i || op.J1 != j {
			return fmt.Errorf("opcode[%d]: starts at (%d,%d), previous ended at (%d,%d)", k, op.I1, op.J1, i, j)
		}
		if op.I2 < op.I1 || op.J2 < op.J1 || op.I2 > len(a) || op.J2 > len(b) {
			return fmt.Errorf("opcode[%d]: invalid ranges a[%d:%d] b[%d:%d]", k, op.I1, op.I2, op.J1, op.J2)
		}
		na, nb := op.I2-op.I1, op.J2-op.J1
		switch op.Op {
		case OpEqual:
			if na == 0 || na != nb {
				return fmt.Errorf("opcode[%d]: OpEqual requires equal non-empty ranges", k)
			}
			for x := 0; x < na; x++ {
				if a[op.I1+x] != b[op.J1+x] {
					return fmt.Errorf("opcode[%d]: OpEqual requires a[%d]==b[%d]", k, op.I1+x, op.J1+x)
				}
			}
		case OpInsert:
			if na != 0 || nb == 0 {
				return fmt.Errorf("opcode[%d]: OpInsert requires an empty a range and a non-empty b range", k)
			}
		case OpDelete:
			if na == 0 || nb != 0 {
				return fmt.Errorf("opcode[%d]: OpDelete requires a non-empty a range and an empty b range", k)
			}
		case OpReplace:
			if na == 0 || nb == 0 {
				return fmt.Errorf("opcode[%d]: OpReplace requires non-empty ranges", k)
			}
		default:
			return fmt.Errorf("opcode[%d]: unknown op %d", k, int(op.Op))
		}
		i, j = op.I2, op.J2
	}
	if i != len(a) || j != len(b) {
		return fmt.Errorf("opcodes end at (%d,%d), want (%d,%d)", i, j, len(a), len(b))
	}
	return nil
}
