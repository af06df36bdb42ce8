package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/logger"
	"github.com/iliyamo/account-service/internal/metrics"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/router"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/storage"
	"github.com/iliyamo/account-service/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.  It is also what the root
// command runs when no subcommand is given.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	log, flush, err := logger.New(cfg.Log)
	if err != nil {
		return oops.Code("LOGGER_INIT_FAILED").Wrap(err)
	}
	defer flush()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return err
	}
	defer st.close()

	tokens, err := utils.LoadTokenService(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		return oops.Code("TOKEN_KEYS_INVALID").Wrap(err)
	}
	if cfg.JWTPrivateKeyPath == "" {
		log.Warn("JWT_PRIVATE_KEY_PATH not set; login cannot issue tokens")
	}

	m := metrics.New()
	rdb := connectRedis(ctx, cfg, log)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	uploader, err := storage.NewLocal(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxBytes)
	if err != nil {
		return oops.Code("STORAGE_INIT_FAILED").With("dir", cfg.UploadDir).Wrap(err)
	}

	var provider service.ProviderVerifier
	if cfg.GoogleClientID != "" {
		provider = service.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleJWKSURL)
	}

	policy := servicePolicy(cfg.Policy)
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)
	flow := service.NewAuthFlow(service.AuthDeps{
		Accounts:   st.accounts,
		Hasher:     hasher,
		Tokens:     tokens,
		Dispatcher: otpDispatcher(ctx, cfg, log),
		Policy:     policy,
		OTPTTL:     cfg.OTPTTL,
		Log:        log.Named("auth"),
		Metrics:    m,
	})
	accounts := service.NewAccountService(service.AccountDeps{
		Accounts: st.accounts,
		Hasher:   hasher,
		Uploader: uploader,
		Provider: provider,
		Policy:   policy,
		Log:      log.Named("accounts"),
	})

	e := router.New(router.Deps{
		Auth:               handler.NewAuthHandler(flow),
		Users:              handler.NewUserHandler(accounts),
		Areas:              handler.NewAreaHandler(service.NewAreaService(st.areas)),
		Tokens:             tokens,
		Keys:               tokens,
		Limiter:            middleware.NewTokenBucket(cfg.RateLimit, rdb, log.Named("ratelimit")),
		Metrics:            m,
		Log:                log,
		UpdateRequiresAuth: cfg.Policy.UpdateRequiresAuth,
		FilesPrefix:        cfg.UploadBaseURL,
		FilesDir:           cfg.UploadDir,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return oops.Code("SERVER_FAILED").With("addr", addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

// connectRedis returns nil when Redis is unreachable; the limiter then
// lets every request through.
func connectRedis(ctx context.Context, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, rate limiting disabled", zap.String("addr", cfg.Redis.Address()), zap.Error(err))
		return nil
	}
	return rdb
}

// otpDispatcher picks how issued OTPs leave the service.  With RabbitMQ
// configured they are published and a consumer in this process forwards
// them to the log sender until ctx is done.  Without it only the dev
// environment logs them directly.
func otpDispatcher(ctx context.Context, cfg config.Config, log *zap.Logger) service.OTPDispatcher {
	sender := queue.LogSender{Log: log.Named("otp")}
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.OTPQueue, sender, log.Named("otp-consumer"))
		go func() { _ = consumer.Run(ctx) }()
		return queue.NewPublisher(cfg.RabbitMQURL, cfg.OTPQueue)
	}
	if cfg.Env == "dev" {
		return queue.Direct{Sender: sender}
	}
	log.Warn("RABBITMQ_URL not set; OTPs will not be dispatched")
	return nil
}

func servicePolicy(p config.Policy) service.Policy {
	return service.Policy{
		LoginRequiresActive:  p.LoginRequiresActive,
		ForgotRequiresActive: p.ForgotRequiresActive,
		VerifyRequiresActive: p.VerifyRequiresActive,
		ConsumeOTPOnVerify:   p.ConsumeOTPOnVerify,
		ConsumeOTPOnSet:      p.ConsumeOTPOnSet,
		RequireAddress:       p.RequireAddress,
	}
}
