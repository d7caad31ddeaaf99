/*
Package types defines the compiled test specification shared by the parser,
the engine and the history store.

# Specifications

A TestSpec is either a sprint (one probe through every step) or a rush (the
same steps driven by a ramp pattern of concurrent users). Specs are assembled
with a Builder and are immutable once built; accessors return copies.

	b := types.NewBuilder(types.Rush)
	b.Step().SetMethod("POST").AddHeader(types.Header{Name: "Accept", Value: "text/html"})
	b.EndStep(u)
	b.AddInterval(1, 250, 60)
	spec := b.Build()

Validate reports the structural problems that must be caught before any
network call: a spec without steps, a step without a URL, or a rush without
intervals.

# Wire Format

Encode produces the submission body expected by the testing service. Only
fields that were set are emitted, so a bare sprint encodes as

	{"steps":[{"url":"http://example.com"}]}

# Errors

Errors produced while compiling and executing carry an ErrorKind (compile,
validation, authentication, service, transport). KindOf extracts it from any
wrapped error, which is how the CLI picks an exit code.
*/
package types
