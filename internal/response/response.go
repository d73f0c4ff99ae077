package response

import (
	"net/http"

	"github.com/go-chi/render"
)

type ErrorBody struct {
	Message string `json:"message"`
}

// JSON writes data as the response body with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if data == nil {
		w.WriteHeader(status)
		return
	}
	render.Status(r, status)
	render.JSON(w, r, data)
}

func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, ErrorBody{Message: msg})
}
