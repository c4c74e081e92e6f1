// Package workflow loads and validates workflow definitions.
//
// Definitions arrive as untyped JSON or YAML documents from an external
// authoring surface. The loader converts a document into the strongly
// typed core.WorkflowDefinition at the boundary, rejecting malformed
// documents at load time rather than failing deep inside a strategy
// executor. The validator then checks structural correctness: referential
// integrity of participant IDs and acyclicity of step dependencies.
package workflow
