package main

import (
	"io"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/hellotrader/ops-api/internal/config"
	"github.com/hellotrader/ops-api/internal/logging"
	"github.com/hellotrader/ops-api/internal/ratelimit"
	"github.com/hellotrader/ops-api/internal/repository/postgres"
	"github.com/hellotrader/ops-api/internal/service"
	transporthttp "github.com/hellotrader/ops-api/internal/transport/http"
	"github.com/hellotrader/ops-api/internal/transport/mail"
	"github.com/hellotrader/ops-api/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("Warning: logstash writer disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stderr, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepo(db)
	challengeRepo := postgres.NewResetChallengeRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)

	var requestLimiter, verifyLimiter service.ResetLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		requestLimiter = ratelimit.NewFixedWindow(rdb, ratelimit.Config{
			Prefix:      "reset-request",
			MaxAttempts: cfg.ResetRequestMaxAttempts,
			Window:      cfg.ResetLimiterWindow,
			FailOpen:    true,
		})
		verifyLimiter = ratelimit.NewFixedWindow(rdb, ratelimit.Config{
			Prefix:      "reset-verify",
			MaxAttempts: cfg.ResetVerifyMaxAttempts,
			Window:      cfg.ResetLimiterWindow,
			FailOpen:    true,
		})
	} else {
		log.Println("Warning: REDIS_ADDR not set, reset rate limiting disabled")
	}

	mailer := mail.NewResetCodeMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)

	resetService := service.NewResetService(userRepo, challengeRepo, mailer, requestLimiter, verifyLimiter, cfg.ResetTTL)
	authService := service.NewAuthService(userRepo, sessionRepo, jwtManager, cfg.GoogleAudience)

	e := transporthttp.NewRouter(cfg.AllowOrigins)
	transporthttp.RegisterReset(e, resetService)
	transporthttp.RegisterAuth(e, authService)
	transporthttp.RegisterSwagger(e)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
