package apperr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stockErr struct{ id string }

func (e *stockErr) Error() string     { return "insufficient stock for " + e.id }
func (e *stockErr) ErrorKind() Kind   { return KindConflict }
func (e *stockErr) ErrorCode() string { return "insufficient_stock" }

func TestKindOf(t *testing.T) {
	notFound := New(KindNotFound, "order_not_found", "order not found")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "sentinel", err: notFound, want: KindNotFound},
		{name: "wrapped sentinel", err: errors.Wrap(notFound, "get order"), want: KindNotFound},
		{name: "typed error", err: errors.Wrap(&stockErr{id: "p1"}, "commit"), want: KindConflict},
		{name: "plain error", err: errors.New("connection reset"), want: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAs(t *testing.T) {
	c, ok := As(errors.Wrap(Newf(KindValidation, "missing_fields", "missing %s", "lines"), "commit"))
	require.True(t, ok)
	assert.Equal(t, "missing_fields", c.ErrorCode())
	assert.Equal(t, "missing lines", c.Error())

	_, ok = As(errors.New("boom"))
	assert.False(t, ok)
}
