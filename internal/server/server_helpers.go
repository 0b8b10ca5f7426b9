package server

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/izzyreal/bbdash/internal/server/httpx"
)

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	httpx.WriteJSON(w, status, v)
}

func readJSON(r *http.Request, v any) error {
	return httpx.ReadJSON(r, v)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func watchIntervalFromEnv() time.Duration {
	raw := strings.TrimSpace(envOrDefault("BBDASH_WATCH_INTERVAL_MS", "5000"))
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 5 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
