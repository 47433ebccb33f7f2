// Package diff computes edit scripts between two sequences and renders them inline with style markers (see internal/styles).
//
// Representation: Opcodes returns an ordered slice of Opcode values that partition both inputs. Each Opcode has an Op:
//   - OpEqual: a[I1:I2] == b[J1:J2]
//   - OpInsert: elements present only in b (I1 == I2)
//   - OpDelete: elements present only in a (J1 == J2)
//   - OpReplace: a[I1:I2] was changed into b[J1:J2]
//
// Invariants:
//   - concat(a[op.I1:op.I2] for op in ops) == a, and likewise for b.
//   - Opcodes are contiguous: each starts where the previous one ended.
//
// Algorithms: AlgorithmSequence (the default) follows difflib's SequenceMatcher: it finds the longest matching block and recurses on both sides, which tends to keep whole words together.
// AlgorithmMyers uses the Myers O(ND) algorithm; adjacent deletes and inserts are merged into a single OpReplace so both algorithms produce the same kind of opcodes.
//
// Rendering: a is the "actual" side and b the "expected" side. Span renders a character diff of two strings: deleted text is struck through (extra in the actual), inserted
// text is underlined (missing from the actual). Lines renders a line diff and falls back to Span for replaced lines that are similar enough.
//
//	s, ok := diff.Span("cat", "cats", 0) // "cat" + styles.Underline("s"), true
package diff
