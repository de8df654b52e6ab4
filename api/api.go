// Copyright (c) 2025 The Stakewheel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	stakingAPI "github.com/stakewheel/stakewheel/api/staking"
	"github.com/stakewheel/stakewheel/log"
	"github.com/stakewheel/stakewheel/staking"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins string
	Timeout        time.Duration
}

// New returns the api handler.
func New(engine *staking.Engine, opts Options) http.HandlerFunc {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()
	stakingAPI.New(engine).Mount(router, "/staking")

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE"}),
	)(handler)

	if opts.Timeout > 0 {
		handler = http.TimeoutHandler(handler, opts.Timeout, "api request timeout")
	}
	return handler.ServeHTTP
}

// Serve starts an http server for the handler and returns the bound
// address and a close function.
func Serve(addr string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen API addr [%v]", addr)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			logger.Warn("api server stopped", "error", err)
		}
	}()
	return "http://" + listener.Addr().String() + "/", func() {
		srv.Close()
		<-done
	}, nil
}
