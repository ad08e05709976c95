package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(InvalidConfig, "bad feature bounds")
	require.Error(t, err)
	assert.Equal(t, "bad feature bounds", err.Error())

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, InvalidConfig, e.Code())
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("disk full")
	err := Wrap(base, StorageFailed, "write-behind failed")
	require.Error(t, err)
	assert.Equal(t, "write-behind failed: disk full", err.Error())
	assert.Equal(t, base, stderrors.Unwrap(err))

	assert.Nil(t, Wrap(nil, StorageFailed, "ignored"))
}

func TestWithFields(t *testing.T) {
	err := New(EmptyPopulation, "no members")
	err = WithFields(err, Fields{"generation": 3})

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, EmptyPopulation, e.Code())
	assert.Equal(t, 3, e.Fields()["generation"])
	assert.Contains(t, err.Error(), "generation=3")

	// Fields on a plain error wrap it with Unknown code
	plain := WithFields(fmt.Errorf("plain"), Fields{"k": "v"})
	require.True(t, stderrors.As(plain, &e))
	assert.Equal(t, Unknown, e.Code())

	assert.Nil(t, WithFields(nil, Fields{"k": "v"}))
}

func TestIs(t *testing.T) {
	err := New(InsufficientParents, "pool too small")
	assert.True(t, stderrors.Is(err, New(InsufficientParents, "other message")))
	assert.False(t, stderrors.Is(err, New(EmptyPopulation, "other code")))
}

func TestCheckContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.NoError(t, CheckContext(ctx, "advance"))

	cancel()
	err := CheckContext(ctx, "advance")
	require.Error(t, err)

	var e *Error
	require.True(t, stderrors.As(err, &e))
	assert.Equal(t, Canceled, e.Code())
	assert.Contains(t, err.Error(), "advance canceled")
}
