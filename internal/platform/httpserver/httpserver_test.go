package httpserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	srv := New(":8080", http.NewServeMux())

	assert.Equal(t, ":8080", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Equal(t, readHeaderTimeout, srv.ReadHeaderTimeout)
	assert.Greater(t, srv.WriteTimeout, srv.ReadTimeout,
		"replies can wait on many remote pages; reads cannot")
}
