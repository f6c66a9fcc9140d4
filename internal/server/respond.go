package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// envelope is the JSON shape of every API response.
type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError reports a failure. code is a short machine-readable summary;
// err, when set, supplies the message.
func writeError(w http.ResponseWriter, status int, code string, err error) {
	e := &apiError{Error: code}
	if err != nil {
		e.Message = err.Error()
		if status >= http.StatusInternalServerError {
			zap.L().Error(code, zap.Error(err))
		}
	}
	writeJSON(w, status, envelope{Success: false, Error: e})
}
