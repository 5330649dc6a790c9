package httpx

import (
	"encoding/json"
	"net/http"
)

type ResultsResponse struct {
	Results any `json:"results"`
	Status  int `json:"status"`
}

type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Details []ErrorDetail `json:"details,omitempty"`
	Status  int           `json:"status"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type DeletedResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func JSONResults(w http.ResponseWriter, status int, results any) {
	JSON(w, status, ResultsResponse{Results: results, Status: status})
}

func JSONDeleted(w http.ResponseWriter) {
	JSON(w, http.StatusOK, DeletedResponse{Success: true, Status: http.StatusOK})
}

func JSONError(w http.ResponseWriter, status int, code string, message string, details []ErrorDetail) {
	JSON(w, status, ErrorResponse{Error: message, Code: code, Details: details, Status: status})
}
