// Package schemaengine converts EMR "assessment" form descriptions written
// in an arbitrary external meta-language into an OpenAI-compatible JSON
// Schema, validates an LLM's filled response against that schema, and
// reverse-maps a validated response back into a target external system's
// wire format.
//
// The engine itself performs no I/O, owns no background tasks, and is safe
// for concurrent readers once tables and custom builders/validators/
// formatters have been registered.
package schemaengine
