package server

import (
	"net/http"

	"github.com/eitanMobb/marinus-sm/internal/app/version"
)

func getVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}
