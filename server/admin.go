package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ircserv/ircserv/logging"
)

// AdminAPI is the optional HTTP status endpoint. It is read-only:
// server state is only reachable through the snapshot accessors, so
// handlers never touch the registries directly.
type AdminAPI struct {
	srv  *Server
	echo *echo.Echo
}

func newAdminAPI(s *Server) *AdminAPI {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &AdminAPI{srv: s, echo: e}
	e.GET("/api/status", a.status)
	e.GET("/api/channels", a.channels)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(
		MetricsRegistry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)))
	return a
}

// Start binds the admin listen address and serves in the background.
func (a *AdminAPI) Start(addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- a.echo.Start(addr)
	}()
	// Echo reports bind failures asynchronously; give it a moment so a
	// bad address fails Start instead of being lost.
	select {
	case err := <-errc:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-time.After(100 * time.Millisecond):
	}
	logging.Logf("Admin API listening on %s", addr)
	return nil
}

// Stop shuts the HTTP server down gracefully.
func (a *AdminAPI) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(ctx); err != nil {
		logging.Logf("Admin API shutdown: %v", err)
	}
}

func (a *AdminAPI) status(c echo.Context) error {
	return c.JSON(http.StatusOK, a.srv.Stats())
}

func (a *AdminAPI) channels(c echo.Context) error {
	return c.JSON(http.StatusOK, a.srv.ChannelList())
}
