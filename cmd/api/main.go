package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/api"
	"main/internal/obs"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	release := flag.Bool("release", false, "Run gin in release mode")
	flag.Parse()

	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(obs.NewMetrics())
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Router(),
	}

	go func() {
		<-sys.Shutdown()
		logs.Info("shutdown requested")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logs.Errorf("http shutdown: %v", err)
		}
		server.Close()
	}()

	logs.Infof("simulation api listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logs.Errorf("http serve: %v", err)
		os.Exit(1)
	}
}
