// Package observability provides metrics for materialization runs.
package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrWorkspace = "workspace"
	attrTarget    = "target"
	attrOutcome   = "outcome"
	attrOp        = "op"
	attrStatus    = "status"
)

func workspaceAttr(workspace string) attribute.KeyValue {
	return attribute.String(attrWorkspace, workspace)
}

func targetAttr(target string) attribute.KeyValue {
	return attribute.String(attrTarget, target)
}

func outcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(attrOutcome, outcome)
}

func opAttr(op string) attribute.KeyValue {
	return attribute.String(attrOp, op)
}

func statusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality: 200-299 -> 2xx, etc.
	// Code 0 means the request never produced a response.
	if code == 0 {
		return attribute.String(attrStatus, "error")
	}
	return attribute.String(attrStatus, fmt.Sprintf("%dxx", code/100))
}
