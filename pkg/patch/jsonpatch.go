package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// OpType is an RFC 6902 operation name.
type OpType string

const (
	OpAdd     OpType = "add"
	OpRemove  OpType = "remove"
	OpReplace OpType = "replace"
	OpMove    OpType = "move"
	OpCopy    OpType = "copy"
	OpTest    OpType = "test"
)

// Operation is a single JSON patch operation.
type Operation struct {
	Op    OpType
	Path  string
	Value interface{}
	From  string
}

// MarshalJSON emits value for add, replace and test (even when nil) and from
// for move and copy, as RFC 6902 requires.
func (o Operation) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"op":   o.Op,
		"path": o.Path,
	}
	switch o.Op {
	case OpAdd, OpReplace, OpTest:
		out["value"] = o.Value
	case OpMove, OpCopy:
		out["from"] = o.From
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a single operation.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var w struct {
		Op    OpType      `json:"op"`
		Path  string      `json:"path"`
		Value interface{} `json:"value"`
		From  string      `json:"from"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Operation{Op: w.Op, Path: w.Path, Value: w.Value, From: w.From}
	return nil
}

// Add returns an add operation.
func Add(path string, value interface{}) Operation {
	return Operation{Op: OpAdd, Path: path, Value: value}
}

// Remove returns a remove operation.
func Remove(path string) Operation {
	return Operation{Op: OpRemove, Path: path}
}

// Replace returns a replace operation.
func Replace(path string, value interface{}) Operation {
	return Operation{Op: OpReplace, Path: path, Value: value}
}

// Move returns a move operation.
func Move(from, path string) Operation {
	return Operation{Op: OpMove, Path: path, From: from}
}

// Copy returns a copy operation.
func Copy(from, path string) Operation {
	return Operation{Op: OpCopy, Path: path, From: from}
}

// Test returns a test operation.
func Test(path string, value interface{}) Operation {
	return Operation{Op: OpTest, Path: path, Value: value}
}

// JSONPatchDocument is an ordered RFC 6902 operation sequence.
type JSONPatchDocument []Operation

// EscapePathSegment escapes "~" and "/" in a JSON pointer reference token.
func EscapePathSegment(segment string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(segment)
}

// Validate checks operation names and JSON pointer syntax.
func (d JSONPatchDocument) Validate() error {
	for i, op := range d {
		switch op.Op {
		case OpAdd, OpRemove, OpReplace, OpTest:
		case OpMove, OpCopy:
			if err := validatePointer(op.From); err != nil {
				return kerrors.NewRequestValidation("operation %d: invalid from: %v", i, err)
			}
		default:
			return kerrors.NewRequestValidation("operation %d: unknown op %q", i, string(op.Op))
		}
		if err := validatePointer(op.Path); err != nil {
			return kerrors.NewRequestValidation("operation %d: invalid path: %v", i, err)
		}
	}
	return nil
}

func validatePointer(pointer string) error {
	if pointer != "" && !strings.HasPrefix(pointer, "/") {
		return fmt.Errorf("%q must be empty or start with \"/\"", pointer)
	}
	return nil
}

// Apply applies the document to a JSON document and returns the result.
func (d JSONPatchDocument) Apply(doc []byte) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	data, err := JSON{Document: d}.Serialize()
	if err != nil {
		return nil, err
	}
	decoded, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, kerrors.NewSerialization("decode JSON patch", err)
	}
	out, err := decoded.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to apply JSON patch: %w", err)
	}
	return out, nil
}

// ApplyTo applies the document to obj, decoding the result into out.
func (d JSONPatchDocument) ApplyTo(obj, out interface{}) error {
	doc, err := json.Marshal(obj)
	if err != nil {
		return kerrors.NewSerialization("marshal patch target", err)
	}
	patched, err := d.Apply(doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(patched, out); err != nil {
		return kerrors.NewSerialization("unmarshal patched object", err)
	}
	return nil
}
