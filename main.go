// main.go
package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/cruscotto/pipeline/config"
	"github.com/cruscotto/pipeline/database"
	"github.com/cruscotto/pipeline/handlers"
	"github.com/cruscotto/pipeline/services"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml (optional, defaults apply)")
		runFull    = flag.Bool("full", false, "acquire and reprocess the whole date range")
		runUpdate  = flag.Bool("update", false, "acquire and process only the previous month")
		serve      = flag.Bool("serve", false, "serve the query API after processing")
	)
	flag.Parse()

	log.Println("Starting cruscotto pipeline...")

	if *configPath == "" {
		for _, candidate := range []string{"config.yaml", "config/config.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				*configPath = candidate
				break
			}
		}
	}
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	store, err := database.Open(config.AppConfig.Paths.OutputDir)
	if err != nil {
		log.Fatalf("Error opening columnar store: %v", err)
	}

	if *runFull || *runUpdate {
		svc, err := services.NewUpdateService(config.AppConfig, store)
		if err != nil {
			log.Fatalf("Error building update service: %v", err)
		}

		if *runFull {
			if err := svc.RunFull(); err != nil {
				log.Fatalf("Pipeline run failed: %v", err)
			}
		} else {
			if err := svc.UpdateLatest(); err != nil {
				log.Fatalf("Monthly update failed: %v", err)
			}
		}
		log.Println("Pipeline completed")
	}

	if !*serve {
		if !*runFull && !*runUpdate {
			flag.Usage()
		}
		return
	}

	mux := http.NewServeMux()
	handlers.NewQueryHandler(store).Register(mux)

	addr := ":" + config.AppConfig.Server.Port
	log.Printf("Query API listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
