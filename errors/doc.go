// Package errors provides structured error types for the region runtime.
//
// Errors are categorized by Phase (which operation detected the problem) and
// Kind (error category). The Error type carries the region identity and
// depth, the type involved, a detail message and a cause chain.
//
// Generated code never receives these as return values. Fatal conditions
// are raised with panic and the *Error is the panic value:
//
//	defer func() {
//		if e, ok := errors.Fatal(recover()); ok {
//			log.Printf("runtime fault: %v", e)
//		}
//	}()
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDestroy, errors.KindLiveDescendant).
//		Region("region#3.1", 1).
//		Detail("region#4.1 at depth 2 is still live").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TagMismatch("int-option", 1, 0)
//	err := errors.Exhausted("region#1.1", 0, 4096, 8, cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
