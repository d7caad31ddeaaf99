package types

import "errors"

// ErrorKind classifies failures reported to callers of the compiler and the engine
type ErrorKind string

const (
	KindCompile        ErrorKind = "compile"
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindService        ErrorKind = "service"
	KindTransport      ErrorKind = "transport"
)

// KindOf returns the kind of the first error in err's chain that declares one.
// The empty kind is returned for unclassified errors.
func KindOf(err error) ErrorKind {
	var k interface{ Kind() ErrorKind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// ValidationError reports a structurally incomplete test spec
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

func (e *ValidationError) Kind() ErrorKind { return KindValidation }
