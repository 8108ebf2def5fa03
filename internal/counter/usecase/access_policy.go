package usecase

import (
	"context"
	"fmt"

	"thing-counter/internal/shared/errors"

	"github.com/google/cel-go/cel"
)

// AccessRequest is the input of a rule evaluation
type AccessRequest struct {
	AuthUID   string
	AuthEmail string
	PathUID   string
	CounterID string
	// Fields holds the incoming write payload (name, delta)
	Fields map[string]interface{}
}

// AccessPolicy decides whether a caller may read or write a counters path.
type AccessPolicy interface {
	CanRead(ctx context.Context, req AccessRequest) error
	CanWrite(ctx context.Context, req AccessRequest) error
}

// CELAccessPolicy evaluates read and write rules compiled with CEL. The rules
// see three variables: auth {uid, email}, path {uid, counterId} and request
// (the write payload).
type CELAccessPolicy struct {
	read  cel.Program
	write cel.Program
}

// NewCELAccessPolicy compiles both rules
func NewCELAccessPolicy(readRule, writeRule string) (*CELAccessPolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("auth", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("path", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	read, err := compileRule(env, readRule)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}
	write, err := compileRule(env, writeRule)
	if err != nil {
		return nil, fmt.Errorf("write rule: %w", err)
	}
	return &CELAccessPolicy{read: read, write: write}, nil
}

func compileRule(env *cel.Env, rule string) (cel.Program, error) {
	ast, iss := env.Compile(rule)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	return env.Program(ast)
}

func (p *CELAccessPolicy) CanRead(ctx context.Context, req AccessRequest) error {
	return evaluate(p.read, "read", req)
}

func (p *CELAccessPolicy) CanWrite(ctx context.Context, req AccessRequest) error {
	return evaluate(p.write, "write", req)
}

func evaluate(prg cel.Program, op string, req AccessRequest) error {
	if req.AuthUID == "" {
		return errors.NewAuthenticationError("authentication required").WithCause(errors.ErrUnauthorized)
	}

	fields := req.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}
	out, _, err := prg.Eval(map[string]interface{}{
		"auth": map[string]interface{}{
			"uid":   req.AuthUID,
			"email": req.AuthEmail,
		},
		"path": map[string]string{
			"uid":       req.PathUID,
			"counterId": req.CounterID,
		},
		"request": fields,
	})
	if err != nil {
		return denied(op, req).WithDetail("evaluation_error", err.Error())
	}
	if allowed, ok := out.Value().(bool); !ok || !allowed {
		return denied(op, req)
	}
	return nil
}

func denied(op string, req AccessRequest) *errors.AppError {
	return errors.NewAuthorizationError(op+" access denied").
		WithCause(errors.ErrAccessDenied).
		WithDetail("path_uid", req.PathUID)
}
