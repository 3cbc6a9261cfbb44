package health

import (
	"encoding/json"
	"net/http"
)

// Status - фиксированный ответ проверки работоспособности.
type Status struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

var Liveness = Status{Status: "ok", Service: "ShazamIO"}

// Handler отвечает {"status":"ok","service":"ShazamIO"}.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(Liveness)
}
