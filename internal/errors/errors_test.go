package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsAssignTypeAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		wantType ErrorType
		fatal    bool
	}{
		{"validation", ValidationErrorf("missing %s", "lines"), ErrorTypeValidation, false},
		{"not found", NotFoundf("no page %d", 1), ErrorTypeNotFound, false},
		{"resolution", ResolutionErrorf("no field %q", "x"), ErrorTypeResolution, false},
		{"depth exceeded", DepthExceededf("depth %d", 17), ErrorTypeDepthExceeded, true},
		{"config", ConfigErrorf("bad"), ErrorTypeConfig, true},
		{"storage", StorageError(fmt.Errorf("disk"), "write"), ErrorTypeStorage, true},
		{"canceled", Canceled(context.Canceled), ErrorTypeCanceled, true},
		{"internal", InternalErrorf("oops"), ErrorTypeInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, DefaultSeverity(tt.wantType), tt.err.Severity)
			assert.Equal(t, tt.fatal, tt.err.IsFatal())
			assert.Equal(t, tt.fatal, IsFatal(tt.err))
			assert.Equal(t, tt.wantType, GetType(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("no such table")
	err := StorageErrorf(cause, "select %s", "Page")

	assert.Equal(t, "select Page: no such table", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Nil(t, Wrap(nil, ErrorTypeStorage, SeverityCritical, "nothing"))

	canceled := Canceled(context.DeadlineExceeded)
	assert.True(t, stderrors.Is(canceled, context.DeadlineExceeded))
}

func TestIsMatchesOnType(t *testing.T) {
	err := fmt.Errorf("create blockquote: %w", NotFoundf("no page 9"))

	assert.True(t, stderrors.Is(err, &Error{Type: ErrorTypeNotFound}))
	assert.False(t, stderrors.Is(err, &Error{Type: ErrorTypeValidation}))
	assert.True(t, IsType(err, ErrorTypeNotFound))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "no page 9", e.Message)
}

func TestPlainErrorsAreFatal(t *testing.T) {
	plain := fmt.Errorf("plain")
	assert.True(t, IsFatal(plain))
	assert.Equal(t, SeverityCritical, GetSeverity(plain))
	assert.Equal(t, "CRITICAL", GetSeverity(plain).String())
	assert.Equal(t, ErrorTypeInternal, GetType(plain))
	assert.False(t, IsFatal(nil))
}

func TestErrorTypeNamesRoundTrip(t *testing.T) {
	for typ := ErrorTypeValidation; typ <= ErrorTypeInternal; typ++ {
		parsed, ok := ParseErrorType(typ.String())
		require.True(t, ok, typ.String())
		assert.Equal(t, typ, parsed)
	}
	_, ok := ParseErrorType("NOPE")
	assert.False(t, ok)
}

func TestMarker(t *testing.T) {
	err := ResolutionErrorf("Blockquote has no field %q", "title").WithContext("field", "title")

	m := err.Marker()
	assert.Equal(t, "RESOLUTION", m.Type)
	assert.Equal(t, `Blockquote has no field "title"`, m.Message)

	back := FromMarker(m)
	assert.Equal(t, ErrorTypeResolution, back.Type)
	assert.Equal(t, SeverityMedium, back.Severity)
	assert.Equal(t, m, back.Marker())
}

func TestDetailedString(t *testing.T) {
	err := DepthExceededf("too deep").WithContext("max_depth", 4)
	s := err.DetailedString()

	assert.Contains(t, s, "[CRITICAL] [DEPTH_EXCEEDED] too deep")
	assert.Contains(t, s, "max_depth: 4")
}
