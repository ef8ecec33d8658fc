package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"k8s.io/klog/v2"

	kerrors "github.com/dtomasi/kubecore/pkg/errors"
)

// Rule is a CEL expression that must evaluate to true for a request to be
// admitted. Expressions see the variables object, oldObject and request.
type Rule struct {
	// Expression is the CEL source.
	Expression string
	// Message is the denial reason. Defaults to the failing expression.
	Message string
	// Operations restricts the rule to these operations. Empty means all.
	Operations []Operation
}

func (r Rule) appliesTo(op Operation) bool {
	return len(r.Operations) == 0 || slices.Contains(r.Operations, op)
}

func (r Rule) message() string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("failed rule: %s", r.Expression)
}

// CELValidator evaluates admission rules written in CEL. Compiled programs
// are cached by expression.
type CELValidator struct {
	env   *cel.Env
	rules []Rule

	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewCELValidator compiles rules and returns a validator for them.
func NewCELValidator(rules ...Rule) (*CELValidator, error) {
	env, err := cel.NewEnv(
		cel.Variable("object", cel.DynType),
		cel.Variable("oldObject", cel.DynType),
		cel.Variable("request", cel.DynType),
		cel.HomogeneousAggregateLiterals(),
		cel.EagerlyValidateDeclarations(true),
		cel.DefaultUTCTimeZone(true),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	v := &CELValidator{
		env:   env,
		rules: rules,
		cache: make(map[string]cel.Program),
	}
	for _, rule := range rules {
		if _, err := v.compile(rule.Expression); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *CELValidator) compile(expression string) (cel.Program, error) {
	if expression == "" {
		return nil, kerrors.NewRequestValidation("CEL expression cannot be empty")
	}

	v.mu.RLock()
	program, ok := v.cache[expression]
	v.mu.RUnlock()
	if ok {
		return program, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if program, ok := v.cache[expression]; ok {
		return program, nil
	}

	ast, issues := v.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression %q: %w", expression, issues.Err())
	}
	program, err := v.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program for %q: %w", expression, err)
	}
	v.cache[expression] = program
	return program, nil
}

// Validate evaluates every rule applying to op against vars and returns the
// message of the first rule that does not hold. An empty message means all
// rules passed.
func (v *CELValidator) Validate(ctx context.Context, op Operation, vars map[string]interface{}) (string, error) {
	for _, rule := range v.rules {
		if !rule.appliesTo(op) {
			continue
		}
		program, err := v.compile(rule.Expression)
		if err != nil {
			return "", err
		}
		result, _, err := program.ContextEval(ctx, vars)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate CEL expression %q: %w", rule.Expression, err)
		}
		ok, err := toBool(result)
		if err != nil {
			return "", fmt.Errorf("CEL expression %q: %w", rule.Expression, err)
		}
		if !ok {
			return rule.message(), nil
		}
	}
	return "", nil
}

// ValidateFunc adapts v into a Func that denies requests violating a rule.
// Evaluation errors deny as well.
func ValidateFunc[K any](v *CELValidator) Func[K] {
	return func(ctx context.Context, req *AdmissionRequest[K]) *AdmissionResponse {
		resp := NewResponse(req)
		vars, err := Variables(req)
		if err != nil {
			return resp.Deny(err.Error())
		}
		msg, err := v.Validate(ctx, req.Operation, vars)
		if err != nil {
			klog.FromContext(ctx).Error(err, "CEL rule evaluation failed")
			return resp.Deny(err.Error())
		}
		if msg != "" {
			return resp.Deny(msg)
		}
		return resp
	}
}

// Variables builds the CEL activation for req: object and oldObject as
// their JSON form, or null when absent, and request without the objects.
func Variables[K any](req *AdmissionRequest[K]) (map[string]interface{}, error) {
	object, err := toValue(req.Object)
	if err != nil {
		return nil, err
	}
	oldObject, err := toValue(req.OldObject)
	if err != nil {
		return nil, err
	}

	meta := *req
	meta.Object, meta.OldObject = nil, nil
	request, err := toValue(&meta)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"object":    object,
		"oldObject": oldObject,
		"request":   request,
	}, nil
}

func toValue[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, kerrors.NewSerialization("encode CEL variable", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, kerrors.NewSerialization("decode CEL variable", err)
	}
	return out, nil
}

func toBool(result ref.Val) (bool, error) {
	if result == nil {
		return false, fmt.Errorf("returned nil")
	}
	if b, ok := result.(types.Bool); ok {
		return bool(b), nil
	}
	return false, fmt.Errorf("returned non-boolean result %s", result.Type().TypeName())
}
