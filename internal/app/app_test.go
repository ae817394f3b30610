package app

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/drstein77/storefront/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(handler http.Handler) *Server {
	return &Server{
		srv:  &http.Server{Handler: handler},
		done: make(chan struct{}),
		Log:  &logger.Logger{},
	}
}

func TestListenWaitsForShutdown(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		io.WriteString(w, "done")
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		server.listen(ln)
		close(stopped)
	}()

	type result struct {
		body string
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		res, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			resCh <- result{err: err}
			return
		}
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		resCh <- result{body: string(body), err: err}
	}()
	<-started

	go server.Shutdown(5 * time.Second)

	select {
	case <-stopped:
		t.Fatal("listen returned while a request was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return after shutdown")
	}

	res := <-resCh
	require.NoError(t, res.err)
	assert.Equal(t, "done", res.body)
}

func TestShutdownBeforeListen(t *testing.T) {
	server := newTestServer(http.NotFoundHandler())
	server.Shutdown(time.Second)
	server.Shutdown(time.Second)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	stopped := make(chan struct{})
	go func() {
		server.listen(ln)
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("listen kept serving after shutdown")
	}
}
