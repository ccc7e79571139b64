package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/diamondsgame/internal/api/apierr"
	"github.com/mcoot/diamondsgame/internal/api/request"
	"github.com/mcoot/diamondsgame/internal/model"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 16 << 10

var writeError = apierr.WriteError

// decode reads and validates a JSON body. On failure it has already
// written the error response.
func decode(w http.ResponseWriter, r *http.Request, req request.Validator) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(req); err != nil {
		writeError(w, apierr.NewInvalidRequestError("invalid request body"))
		return false
	}
	if err := req.Validate(); err != nil {
		writeError(w, apierr.NewInvalidRequestError(err.Error()))
		return false
	}
	return true
}

// sessionID reads the {id} path variable
func sessionID(r *http.Request) model.SessionID {
	return model.SessionID(mux.Vars(r)["id"])
}
