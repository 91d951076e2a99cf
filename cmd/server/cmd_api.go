package main

import (
	"fmt"
	"net/http"

	"shoestore/internal/api"
	"shoestore/internal/auth"
	"shoestore/internal/broker"
	"shoestore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// shoestore api: REST API for the desktop client and integrations
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the REST API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot("api")
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.cfg.ValidateAuth(); err != nil {
			return err
		}

		rc, err := a.redis(false)
		if err != nil {
			return err
		}
		var cache service.CatalogCache
		if rc != nil {
			defer rc.Close()
			cache = rc
		}

		producer := broker.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.TopicOrder)
		defer producer.Close()

		tokens := auth.NewTokenManager(a.cfg.Auth)
		catalogService := service.NewCatalogService(a.store, cache)
		orderService := service.NewOrderService(a.store, broker.NewEventPublisher(producer), cache, a.cfg.Business)
		authService := service.NewAuthService(a.store, tokens)

		if a.cfg.Server.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := gin.New()
		api.NewHandler(catalogService, orderService, authService, tokens, a.store).SetupRoutes(router)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%s", a.cfg.Server.Port),
			Handler: router,
		}
		return serveHTTP(srv, a.logger)
	},
}
