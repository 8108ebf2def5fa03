package usecase

import (
	"context"
	"strings"
	"testing"

	"thing-counter/internal/counter/config"
	"thing-counter/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultPolicy(t *testing.T) *CELAccessPolicy {
	t.Helper()
	p, err := NewCELAccessPolicy(config.DefaultReadRule, config.DefaultWriteRule)
	require.NoError(t, err)
	return p
}

func TestCELAccessPolicy_OwnerOnly(t *testing.T) {
	p := defaultPolicy(t)
	ctx := context.Background()

	assert.NoError(t, p.CanRead(ctx, AccessRequest{AuthUID: "u1", PathUID: "u1"}))
	assert.NoError(t, p.CanWrite(ctx, AccessRequest{AuthUID: "u1", PathUID: "u1", CounterID: "c1"}))

	err := p.CanRead(ctx, AccessRequest{AuthUID: "u2", PathUID: "u1"})
	assert.True(t, errors.IsAuthorization(err))
	err = p.CanWrite(ctx, AccessRequest{AuthUID: "u2", PathUID: "u1"})
	assert.True(t, errors.IsAuthorization(err))
}

func TestCELAccessPolicy_Unauthenticated(t *testing.T) {
	p := defaultPolicy(t)
	err := p.CanRead(context.Background(), AccessRequest{PathUID: "u1"})
	assert.True(t, errors.IsAuthentication(err))
}

func TestCELAccessPolicy_NameLength(t *testing.T) {
	p := defaultPolicy(t)
	ctx := context.Background()

	ok := AccessRequest{AuthUID: "u1", PathUID: "u1", Fields: map[string]interface{}{"name": "Push-ups"}}
	assert.NoError(t, p.CanWrite(ctx, ok))

	tooLong := AccessRequest{AuthUID: "u1", PathUID: "u1", Fields: map[string]interface{}{"name": strings.Repeat("x", 101)}}
	assert.True(t, errors.IsAuthorization(p.CanWrite(ctx, tooLong)))
}

func TestCELAccessPolicy_CustomRules(t *testing.T) {
	p, err := NewCELAccessPolicy(`true`, `auth.email.endsWith("@example.com") && request.delta <= 10`)
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, p.CanRead(ctx, AccessRequest{AuthUID: "anyone", PathUID: "u1"}))
	assert.NoError(t, p.CanWrite(ctx, AccessRequest{AuthUID: "u1", AuthEmail: "a@example.com", Fields: map[string]interface{}{"delta": int64(1)}}))
	assert.Error(t, p.CanWrite(ctx, AccessRequest{AuthUID: "u1", AuthEmail: "a@other.org", Fields: map[string]interface{}{"delta": int64(1)}}))
	// missing key is an evaluation error, which denies
	assert.Error(t, p.CanWrite(ctx, AccessRequest{AuthUID: "u1", AuthEmail: "a@example.com"}))
}

func TestCELAccessPolicy_NonBooleanDenies(t *testing.T) {
	p, err := NewCELAccessPolicy(`path.uid`, `true`)
	require.NoError(t, err)
	assert.Error(t, p.CanRead(context.Background(), AccessRequest{AuthUID: "u1", PathUID: "u1"}))
}

func TestNewCELAccessPolicy_InvalidRule(t *testing.T) {
	_, err := NewCELAccessPolicy(`auth.uid ==`, `true`)
	assert.Error(t, err)
}
