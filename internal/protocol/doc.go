// Package protocol owns the schema-driven decoder for the note message
// format.
//
// Ownership boundary:
// - declarative field schemas (tag -> name, repetition, value kind)
// - decoded message trees and their accessors
// - the decode loop and its structural error taxonomy
//
// Primitive readers live in protocol/wire; concrete note, drawing and
// table schemas live in protocol/schema.
package protocol
