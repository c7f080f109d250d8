package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NOT_FOUND: gone", New(CodeNotFound, "gone", "", http.StatusNotFound).Error())
	assert.Equal(t, "BAD_REQUEST: bad (page)", BadRequest("bad", "page").Error())

	var nilErr *APIError
	assert.Empty(t, nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestWrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := Unavailable("database unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	assert.Equal(t, CodeUnavailable, err.Code)
	assert.Equal(t, cause.Error(), err.Details)

	assert.Empty(t, Wrap(nil, CodeInternal, "boom", http.StatusInternalServerError).Details)
}
