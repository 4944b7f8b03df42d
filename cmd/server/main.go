// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/ransomnotes/ransomnotes/internal/auth"
	"github.com/ransomnotes/ransomnotes/internal/cache"
	"github.com/ransomnotes/ransomnotes/internal/config"
	"github.com/ransomnotes/ransomnotes/internal/handlers"
	"github.com/ransomnotes/ransomnotes/internal/middleware"
	"github.com/ransomnotes/ransomnotes/internal/words"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg := config.Load()

	source := words.Embedded()
	if cfg.WordsFile != "" {
		loaded, err := words.LoadFile(cfg.WordsFile)
		if err != nil {
			log.Fatalf("failed to load words file %s: %v", cfg.WordsFile, err)
		}
		source = loaded
	}

	// Round history is optional; the server runs fine without Redis.
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, round history disabled: %v", err)
	}

	srv := handlers.NewGameServer(&cfg, source, logger)

	mux := http.NewServeMux()

	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
