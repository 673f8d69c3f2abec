// Package tool defines the tools relay serves to the model over MCP and the
// schema-checked invocation path they share.
package tool

import (
	"context"
)

// Permission describes a capability a tool requires.
// Example: network:outbound, fs:write
type Permission struct {
	// Name is a stable identifier of the permission.
	Name string `json:"name"`
	// Description explains what the permission allows.
	Description string `json:"description,omitempty"`
}

// Descriptor declares the static interface of a tool.
// InputSchema is a JSON Schema object in UTF-8 bytes.
type Descriptor struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	InputSchema []byte       `json:"input_schema"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// Tool is a callable unit with a schema-validated input and a textual report.
type Tool interface {
	// Describe returns the public descriptor.
	Describe() Descriptor
	// Invoke runs the tool. args conform to InputSchema when called through SafeInvoke.
	Invoke(ctx context.Context, args map[string]any) (string, error)
}
