// README: Entry point; loads config, wires services, starts HTTP server and background loops.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"foodfast/internal/bus"
	"foodfast/internal/config"
	httptransport "foodfast/internal/http"
	"foodfast/internal/infra"
	"foodfast/internal/maps"
	"foodfast/internal/modules/catalog"
	"foodfast/internal/modules/delivery"
	"foodfast/internal/modules/dispatch"
	"foodfast/internal/modules/fleet"
	"foodfast/internal/modules/order"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := bus.NewHub()
	var events bus.Publisher = hub
	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		bridge := bus.NewBridge(hub, redisClient)
		go bridge.Run(ctx)
		events = bridge
	}

	var orderStore order.Store = order.NewMemStore()
	var fleetStore fleet.Store = fleet.NewMemStore()
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal(err)
		}
		orderStore = order.NewPgStore(dbPool)
		fleetStore = fleet.NewPgStore(dbPool)
	} else {
		log.Println("no FOODFAST_DB_DSN set, running on in-memory stores")
	}

	var products order.Catalog = catalog.NewStatic(catalog.DemoProducts())
	if cfg.Catalog.BaseURL != "" {
		products = catalog.NewClient(cfg.Catalog.BaseURL)
	}

	orderSvc := order.NewService(orderStore, events, products)
	fleetSvc := fleet.NewService(fleetStore, events)

	deliveries := delivery.NewManager(orderSvc, fleetSvc, events, delivery.Config{
		Tick:       cfg.Dispatch.Tick,
		Step:       cfg.Dispatch.ProgressStep,
		ChargeCost: cfg.Dispatch.ChargeCost,
	})

	var estimator dispatch.Estimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		estimator = routeSvc
	}
	dispatchSvc := dispatch.NewService(orderSvc, fleetSvc, deliveries, estimator, cfg.Dispatch)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:   orderSvc,
		Fleet:    fleetSvc,
		Dispatch: dispatchSvc,
		Hub:      hub,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go dispatchSvc.RunReconciler(ctx)
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
