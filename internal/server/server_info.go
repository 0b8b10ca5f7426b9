package server

import (
	"net/http"
	"os"
	"strings"

	"github.com/izzyreal/bbdash/internal/protocol"
	"github.com/izzyreal/bbdash/internal/version"
)

const apiVersion = 1

func serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	host = strings.TrimSpace(host)
	writeJSON(w, http.StatusOK, protocol.ServerInfoResponse{
		Name:       "bbdash",
		APIVersion: apiVersion,
		Version:    version.Current(),
		Hostname:   host,
	})
}
