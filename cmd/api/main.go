package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biolens/auth-api/internal/config"
	"github.com/biolens/auth-api/internal/infrastructure/dynamo"
	googleinfra "github.com/biolens/auth-api/internal/infrastructure/google"
	jwtinfra "github.com/biolens/auth-api/internal/infrastructure/jwt"
	s3infra "github.com/biolens/auth-api/internal/infrastructure/s3"
	"github.com/biolens/auth-api/internal/infrastructure/smtp"
	"github.com/biolens/auth-api/internal/infrastructure/sns"
	"github.com/biolens/auth-api/internal/otp"
	transporthttp "github.com/biolens/auth-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Every sign-in channel ends in a signed token, so missing keys are fatal.
	jwtProvider, err := jwtinfra.NewProvider(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiry)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	// S3 store for face captures.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// OTP codes live in memory for a single instance; the dynamo backend
	// shares them across replicas.
	var otpStore otp.Store
	if cfg.OTPBackend == "dynamo" {
		otpStore = dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPCodes, cfg.OTPExpiry)
	} else {
		otpStore = otp.NewMemoryStore(cfg.OTPExpiry)
	}

	deps := &transporthttp.Deps{
		UserRepo:       dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users, cfg.DynamoTables.UserUniques),
		FaceRepo:       dynamo.NewFaceRepo(dynamoClient, cfg.DynamoTables.FaceImages),
		OTPStore:       otpStore,
		S3Store:        s3Store,
		Mailer:         mailer,
		SMSSender:      smsSender,
		GoogleVerifier: googleinfra.NewVerifier(cfg.GoogleClientID),
		JWTProvider:    jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
