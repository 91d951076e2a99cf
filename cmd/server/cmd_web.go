package main

import (
	"fmt"
	"net/http"

	"shoestore/internal/broker"
	"shoestore/internal/service"
	"shoestore/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// shoestore web: server-rendered storefront
var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the storefront web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot("web")
		if err != nil {
			return err
		}
		defer a.close()

		rc, err := a.redis(true)
		if err != nil {
			return fmt.Errorf("sessions need redis: %w", err)
		}
		defer rc.Close()

		producer := broker.NewProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.TopicOrder)
		defer producer.Close()

		catalogService := service.NewCatalogService(a.store, rc)
		orderService := service.NewOrderService(a.store, broker.NewEventPublisher(producer), rc, a.cfg.Business)
		authService := service.NewAuthService(a.store, nil)

		if a.cfg.Server.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := gin.New()
		web.NewServer(catalogService, orderService, authService, rc, a.cfg.Web).SetupRoutes(router)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%s", a.cfg.Web.Port),
			Handler: router,
		}
		return serveHTTP(srv, a.logger)
	},
}
