// Package helpful wraps a *testing.T with assertions whose failure messages are written for students rather than for the author of the test.
//
// Values produced by the code under test are marked so a failure can say which call produced them:
//
//	func TestAdd(t *testing.T) {
//		h := helpful.New(t)
//		h.Equal(5, helpful.Fn(hw1.Add, 2, 3))
//		h.OutputEqualWithInput("Ana\n", "Name? Hello Ana", helpful.Fn(hw1.Greet))
//	}
//
// Fn defers the call so that the assertion can run it under a timeout and report a crash or an infinite loop as such. Label marks a value that was already
// computed. Every failure stops the test (like require) and is also written to the report file of the helpfultests runner when one is configured.
//
// Code under test should do its console I/O through package console so that the output helpers can capture and script it.
package helpful
