package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/talkincode/bikeshop/config"
	"github.com/talkincode/bikeshop/internal/adminapi"
	"github.com/talkincode/bikeshop/internal/app"
	"github.com/talkincode/bikeshop/internal/webserver"
	"go.uber.org/zap"
)

var (
	conffile = flag.String("c", "", "config yaml file")
	initdb   = flag.Bool("initdb", false, "drop and recreate every table, then seed the default admin")
	h        = flag.Bool("h", false, "help usage")
)

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		return
	}

	cfg := config.LoadConfig(*conffile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		zap.S().Errorf("startup failed: %v", err)
		application.Release()
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		application.InitDb()
		fmt.Println("database initialized")
		return
	}

	adminapi.Init()
	server := webserver.NewAdminServer(application)
	go func() {
		if err := server.Start(); err != nil {
			zap.S().Errorf("admin server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	zap.S().Info("shutting down")
	_ = server.Close()
}
