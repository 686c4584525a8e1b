package main

import (
	"context"
	stdlog "log"
	"time"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/linemk/greencart/internal/app"
	"github.com/linemk/greencart/internal/app/handlers"
	"github.com/linemk/greencart/internal/cache"
	"github.com/linemk/greencart/internal/config"
	"github.com/linemk/greencart/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/greencart/internal/lib/logger"
	"github.com/linemk/greencart/internal/lib/logger/handlers/urllog"
	"github.com/linemk/greencart/internal/lib/mailer"
	"github.com/linemk/greencart/internal/payment"
	"github.com/linemk/greencart/internal/service"
	"github.com/linemk/greencart/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// .env удобен локально, в остальных окружениях переменные уже выставлены
	if err := godotenv.Load(); err != nil {
		stdlog.Println("no .env file found, using environment variables")
	}

	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	addressRepo := storage.NewAddressRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	productRepo := storage.NewProductRepository(application.DB)
	if cfg.Redis.Addr != "" {
		productCache := cache.NewCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err := productCache.Ping(context.Background()); err != nil {
			log.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
		} else {
			defer productCache.Close()
			productRepo = storage.NewCachedProductRepository(log, productRepo, productCache)
		}
	}

	// платежный шлюз конструируется один раз и передается в сервисы явно
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	mail := mailer.NewLogMailer(log)
	tokenTTL := time.Duration(cfg.JWT.TokenTTL) * time.Minute

	authService := service.NewAuthService(log, userRepo, mail, tokenTTL)
	cartService := service.NewCartService(log, userRepo)
	orderService := service.NewOrderService(log, application.DB, productRepo, addressRepo, orderRepo, gateway, cfg.Stripe.ClientOrigin)
	webhookService := service.NewWebhookService(log, userRepo, orderRepo, gateway)

	// открытые эндпоинты
	router.Post("/api/user/register", handlers.RegisterHandler(log, authService, tokenTTL))
	router.Post("/api/user/login", handlers.LoginHandler(log, authService, tokenTTL))
	router.Get("/api/user/logout", handlers.LogoutHandler(log))
	router.Get("/api/product/list", handlers.ListProductsHandler(log, productRepo))

	// вебхук шлюза аутентифицируется подписью, не пользовательским токеном
	router.Post("/stripe", handlers.StripeWebhookHandler(log, webhookService))

	// маршруты подтверждения почты доступны и без подтвержденного email
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.New(log, userRepo, jwtmiddleware.Options{AllowUnverified: true}))
		r.Get("/api/user/is-auth", handlers.IsAuthHandler(log))
		r.Post("/api/user/verify-email-otp", handlers.VerifyEmailHandler(log, authService))
		r.Post("/api/user/resend-email-otp", handlers.ResendOTPHandler(log, authService))
	})

	// все остальное требует подтвержденного пользователя
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.New(log, userRepo, jwtmiddleware.Options{}))
		r.Post("/api/cart/update", handlers.UpdateCartHandler(log, cartService))
		r.Post("/api/order/cod", handlers.PlaceOrderCODHandler(log, orderService))
		r.Post("/api/order/stripe", handlers.PlaceOrderStripeHandler(log, orderService))
		r.Get("/api/order/user", handlers.UserOrdersHandler(log, orderService))
	})

	// выборка всех заказов только для продавца
	router.Group(func(r chi.Router) {
		r.Use(jwtmiddleware.New(log, userRepo, jwtmiddleware.Options{RequireSeller: true}))
		r.Get("/api/order/seller", handlers.AllOrdersHandler(log, orderService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
