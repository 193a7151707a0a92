// Package v1 contains the full set of handler functions and routes
// supported by the web api.
package v1

import (
	"net/http"

	"github.com/ahmiyat/ahmiyat/app/services/ahmiyat/handlers/v1/public"
	"github.com/ahmiyat/ahmiyat/foundation/events"
	"github.com/ahmiyat/ahmiyat/foundation/ledger/state"
	"github.com/ahmiyat/ahmiyat/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Evts  *events.Events
}

// PublicRoutes binds all the public routes. The four client endpoints
// live at the root so wallets and operators reach them without a
// version prefix; the event stream and genesis dump are versioned.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, "", "/balance", pbl.Balance)
	app.Handle(http.MethodGet, "", "/status", pbl.Status)
	app.Handle(http.MethodGet, "", "/metrics", pbl.Metrics)
	app.Handle(http.MethodPost, "", "/tx", pbl.SubmitTransaction)

	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/proposals", pbl.Proposals)
	app.Handle(http.MethodPost, version, "/proposals", pbl.ProposeUpgrade)
	app.Handle(http.MethodPost, version, "/proposals/:id/vote", pbl.VoteUpgrade)
}
