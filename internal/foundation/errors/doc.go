// Package errors provides the classified error primitives used across the site builder.
//
// Every failure in the build path is fatal for the current run, but callers still
// need to know what kind of failure it was: a broken source file, an I/O problem, or
// a collaborator (markdown, template, style-sheet compiler) rejecting its input.
// ClassifiedError carries that category together with a severity and a small
// context map, and the CLI adapter turns it into an exit code and a log line.
//
// Example usage:
//
//	err := errors.SourceError("duplicate slug").
//		WithContext("slug", slug).
//		WithContext("path", path).
//		Build()
package errors
