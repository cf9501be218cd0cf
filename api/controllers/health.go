package controllers

import (
	"context"
	"net/http"

	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

// HealthController serves liveness and readiness probes.
type HealthController struct {
	DB    pinger
	Redis pinger
	Logg  *logger.Logger
}

// Live reports process liveness only.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

// Ready reports whether backing dependencies answer.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	healthy := true

	if c.DB != nil {
		if err := c.DB.Ping(r.Context()); err != nil {
			checks["db"] = err.Error()
			healthy = false
		} else {
			checks["db"] = "ok"
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !healthy {
		responses.WriteError(r.Context(), c.Logg, w,
			pkgerrors.New(pkgerrors.CodeDependency, "dependency check failed").WithDetails(checks))
		return
	}
	responses.WriteSuccess(w, checks)
}
