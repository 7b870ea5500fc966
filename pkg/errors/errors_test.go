package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keggminer/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"bad molfile", errors.ErrCodeMoleculeParsingFailed, "counts line too short"},
		{"invalid param", errors.CodeInvalidParam, "SMILES must not be empty"},
		{"no data", errors.ErrCodeKEGGNoData, "C99999 returned nothing"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.Contains(t, ae.Stack, "errors_test.go")
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	ae := errors.Newf(errors.ErrCodeKEGGStatus, "status %d", 503)
	assert.Equal(t, "status 503", ae.Message)
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("dial tcp: connection refused")
	wrapped := errors.Wrap(root, errors.ErrCodeKEGGRequestFailed, "GET failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.ErrCodeKEGGRequestFailed, wrapped.Code)
	assert.Equal(t, root, wrapped.Cause)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unclosed ring")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	require.NotNil(t, outer)
	assert.Equal(t, errors.ErrCodeMoleculeInvalidSMILES, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeMoleculeInvalidSMILES, "unclosed ring")
	outer := errors.Wrap(inner, errors.CodeInternal, "unexpected state")

	assert.Equal(t, errors.CodeInternal, outer.Code)
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	plain := errors.New(errors.ErrCodeKEGGNoData, "no data")
	assert.Equal(t, "[KEGG_002] no data", plain.Error())

	detailed := plain.WithDetail("kegg_id=C00001")
	assert.Equal(t, "[KEGG_002] no data: kegg_id=C00001", detailed.Error())

	wrapped := errors.Wrap(stderrors.New("EOF"), errors.ErrCodeKEGGRequestFailed, "read body")
	assert.Equal(t, "[KEGG_001] read body | EOF", wrapped.Error())
}

func TestWithDetail_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.CodeNotFound, "resource missing")
	detailed := original.WithDetailf("id=%d", 42)

	assert.Empty(t, original.Detail)
	assert.Equal(t, "id=42", detailed.Detail)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithCause_AttachesCause(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection reset")
	ae := errors.New(errors.ErrCodeCacheError, "redis error").WithCause(root)

	assert.Equal(t, root, stderrors.Unwrap(ae))
}

func TestIsCode_TraversesChain(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeKEGGStatus, "status 500")
	mid := fmt.Errorf("attempt 2: %w", inner)
	outer := errors.Wrap(mid, errors.ErrCodeKEGGNoData, "gave up")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeKEGGNoData))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeKEGGStatus))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeMoleculeParsingFailed))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeKEGGStatus))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeOutputFailed,
		errors.GetCode(fmt.Errorf("wrap: %w", errors.New(errors.ErrCodeOutputFailed, "disk full"))))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, errors.IsRetryable(nil))
	assert.True(t, errors.IsRetryable(stderrors.New("i/o timeout")))
	assert.True(t, errors.IsRetryable(errors.New(errors.ErrCodeKEGGStatus, "502")))
	assert.True(t, errors.IsRetryable(errors.New(errors.ErrCodeKEGGNoData, "empty body")))
	assert.False(t, errors.IsRetryable(errors.New(errors.ErrCodeMoleculeParsingFailed, "bad")))
	assert.False(t, errors.IsRetryable(errors.New(errors.ErrCodeCanceled, "ctx done")))
}

func TestFactories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeInvalidParam, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.CodeNotFound, errors.NotFound("x").Code)
	assert.Equal(t, errors.CodeInternal, errors.Internal("x").Code)
}
