package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToStatus(t *testing.T) {
	cases := map[int]int{
		CodeOK:                  http.StatusOK,
		CodeInvalidParams:       http.StatusBadRequest,
		CodeUnAuthorized:        http.StatusUnauthorized,
		CodeNotFound:            http.StatusNotFound,
		CodeInsufficientBalance: http.StatusBadRequest,
		CodeRateLimited:         http.StatusTooManyRequests,
		CodeInternalError:       http.StatusInternalServerError,
		CodeUnavailable:         http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, CodeToStatus(code), "code %d", code)
	}
}
