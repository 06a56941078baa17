package main

import (
	"encoding/json"
	"github.com/planificaia/aliada/internal/errors"
	"net/http"
)

// healthy responds with a JSON object indicating that the server is healthy.
func (app *application) healthy(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type locationsResponse struct {
	Region    string   `json:"region,omitempty"`
	Subregion string   `json:"subregion,omitempty"`
	Options   []string `json:"options"`
}

// apiLocations feeds the cascading location selectors. Without parameters it lists the regions, with region the
// subregions, and with both the localities. Unknown names give an empty list.
func (app *application) apiLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resp := locationsResponse{
		Region:    query.Get("region"),
		Subregion: query.Get("subregion"),
		Options:   nil,
	}
	switch {
	case resp.Region == "":
		resp.Subregion = ""
		resp.Options = app.locations.Regions()
	case resp.Subregion == "":
		resp.Options = app.locations.Subregions(resp.Region)
	default:
		resp.Options = app.locations.Localities(resp.Region, resp.Subregion)
	}
	if resp.Options == nil {
		resp.Options = []string{}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "marshal locations"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
