package main

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/freshvalley/dairy-shop-backend/internal/config"
	"github.com/freshvalley/dairy-shop-backend/internal/logging"
	"github.com/freshvalley/dairy-shop-backend/internal/media"
	miniostore "github.com/freshvalley/dairy-shop-backend/internal/repository/minio"
	"github.com/freshvalley/dairy-shop-backend/internal/repository/ports"
	"github.com/freshvalley/dairy-shop-backend/internal/repository/postgres"
	"github.com/freshvalley/dairy-shop-backend/internal/service"
	transporthttp "github.com/freshvalley/dairy-shop-backend/internal/transport/http"
	"github.com/freshvalley/dairy-shop-backend/internal/transport/sms"
	"github.com/freshvalley/dairy-shop-backend/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	userRepo := postgres.NewUserRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	resetRepo := postgres.NewPasswordResetRepo(db)
	productRepo := postgres.NewProductRepo(db)
	orderRepo := postgres.NewOrderRepo(db)

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := miniostore.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Fatalf("connect minio: %v", err)
		}
		storage = miniostore.NewStorage(client, cfg.MinIOPublicURL, cfg.MinIOUseSSL)
	} else {
		log.Println("MINIO_ENDPOINT not set; product image uploads disabled")
	}

	var sender service.ResetCodeSender
	if cfg.SMSGatewayURL != "" {
		sender = sms.NewGatewaySender(cfg.SMSGatewayURL, cfg.SMSGatewayAPIKey, cfg.SMSFrom)
	} else {
		log.Println("SMS_GATEWAY_URL not set; reset codes will be logged to stdout")
		sender = sms.NewConsoleSender()
	}

	resetTokens := util.NewResetTokenManager(cfg.ResetTokenSecret, cfg.ResetTokenTTL)
	authService := service.NewAuthService(userRepo, sessionRepo, resetRepo, sender, resetTokens, cfg.SessionTTL, cfg.ResetCodeTTL, cfg.ResetCodeLength)
	orderService := service.NewOrderService(orderRepo)
	catalogService := service.NewCatalogService(productRepo, storage, media.NewImageProcessor(cfg.ProductImageMaxDim), service.CatalogServiceConfig{
		Bucket:            cfg.MinIOBucketProduct,
		MaxImageBytes:     cfg.ProductImageMaxBytes,
		ImageMaxDimension: cfg.ProductImageMaxDim,
	})

	if err := catalogService.EnsureSeeded(ctx); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	e := transporthttp.NewRouter(cfg.AllowOrigins)
	transporthttp.RegisterPages(e, cfg.ShopBaseURL)
	transporthttp.RegisterSwagger(e)
	transporthttp.RegisterAuth(e, authService)
	transporthttp.RegisterCatalog(e, authService, catalogService)
	transporthttp.RegisterOrders(e, authService, orderService)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
