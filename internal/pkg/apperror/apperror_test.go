package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "direct", err: Conflict("job already active"), want: KindConflict},
		{name: "wrapped with fmt", err: fmt.Errorf("upload: %w", UnsupportedMedia("bad type")), want: KindUnsupportedMedia},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "timeout with cause", err: Timeout("pipeline call exceeded ceiling", errors.New("deadline")), want: KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessageOfHidesUnknownErrors(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("pq: connection refused")))
	assert.Equal(t, "no approved draft", MessageOf(PreconditionFailed("no approved draft")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("model_unavailable")
	err := PipelineFailure("pipeline rejected request", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, Is(err, KindPipelineFailure))
	assert.False(t, Is(nil, KindPipelineFailure))
}
