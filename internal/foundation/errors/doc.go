// Package errors provides the classified error primitives used across pagebuilder.
//
// Every failure a page can produce is a ClassifiedError carrying a category
// (malformed content, parse, unknown group, unresolved reference, ...), a
// severity and a context map naming the offending file and field.
//
// Example usage:
//
//	err := errors.MalformedContent("missing required field").
//		WithFile(path).
//		WithField("permalink").
//		Build()
package errors
