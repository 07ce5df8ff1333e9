package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
//
// Context from a wrapped ClassifiedError is carried over so file and field
// information survives re-classification.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	if inner, ok := AsClassified(err); ok {
		b.context = b.context.Merge(inner.Context())
	}
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithCause sets the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithFile records the source file the error refers to.
func (b *ErrorBuilder) WithFile(path string) *ErrorBuilder {
	return b.WithContext(ContextFile, path)
}

// WithField records the front matter field the error refers to.
func (b *ErrorBuilder) WithField(field string) *ErrorBuilder {
	return b.WithContext(ContextField, field)
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for common error patterns

// MalformedContent creates an error for a page missing or misusing a required field.
func MalformedContent(message string) *ErrorBuilder {
	return NewError(CategoryMalformedContent, message)
}

// ParseError creates an error for a front matter block that is not well-formed.
func ParseError(message string) *ErrorBuilder {
	return NewError(CategoryParse, message)
}

// UnknownGroup creates an error for a lookup of a feature group a page does not define.
func UnknownGroup(name string) *ErrorBuilder {
	return NewError(CategoryUnknownGroup, "unknown feature group").WithContext(ContextGroup, name)
}

// UnresolvedReference creates an error for an insertion directive that cannot be resolved.
func UnresolvedReference(message string) *ErrorBuilder {
	return NewError(CategoryUnresolvedReference, message)
}

// ConfigError creates a configuration error.
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message)
}

// NotFoundError creates a not-found error.
func NotFoundError(resource string) *ErrorBuilder {
	return NewError(CategoryNotFound, resource+" not found")
}

// RenderError creates a render error that is not attributable to content.
func RenderError(message string) *ErrorBuilder {
	return NewError(CategoryRender, message)
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message)
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
