package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/dualcapture/internal/audiocore/capture"
	"github.com/tphakala/dualcapture/internal/logger"
)

const shutdownTimeout = 5 * time.Second

// StatsFunc returns the current engine snapshot for the health endpoint.
type StatsFunc func() capture.Stats

// Endpoint serves /metrics and /healthz over HTTP.
type Endpoint struct {
	Echo          *echo.Echo
	listenAddress string
	log           logger.Logger
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status string        `json:"status"`
	Engine capture.Stats `json:"engine"`
}

// NewEndpoint creates an endpoint bound to listenAddress.
func NewEndpoint(listenAddress string, m *Metrics, stats StatsFunc) *Endpoint {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	ep := &Endpoint{
		Echo:          e,
		listenAddress: listenAddress,
		log:           GetLogger(),
	}

	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		st := stats()
		resp := healthResponse{Status: "ok", Engine: st}
		code := http.StatusOK
		if !st.Running {
			resp.Status = "stopped"
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, resp)
	})

	return ep
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (ep *Endpoint) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		ep.log.Info("metrics endpoint starting", logger.String("address", ep.listenAddress))
		errCh <- ep.Echo.Start(ep.listenAddress)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ep.log.Info("stopping metrics endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ep.Echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
