package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/party-queue-client/internal/app"
	"github.com/party-queue-client/internal/auth"
	"github.com/party-queue-client/internal/backend"
	"github.com/party-queue-client/internal/config"
	apperrors "github.com/party-queue-client/internal/errors"
	"github.com/party-queue-client/internal/logger"
	"github.com/party-queue-client/internal/notify"
	"github.com/party-queue-client/internal/playback"
	"github.com/party-queue-client/internal/realtime"
	"github.com/party-queue-client/internal/role"
	"github.com/party-queue-client/internal/spotify"
	"github.com/party-queue-client/internal/view"
	"github.com/party-queue-client/pkg/cache"
	"github.com/party-queue-client/pkg/database"
	"github.com/party-queue-client/pkg/events"
	"github.com/party-queue-client/pkg/models"
)

const shutdownTimeout = 5 * time.Second

// advanceFunc lets the bridge call the controller that is built after it.
type advanceFunc func(ctx context.Context) error

func (f advanceFunc) Advance(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, envLoaded, err := config.Load()
	if err != nil {
		logger.New().Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel), cfg.IsProduction())
	defer log.Sync()
	if !envLoaded {
		log.Warn(".env file not found")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Client stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	backendClient := backend.NewClient(cfg.BackendURL, cfg.SessionToken, cfg.RequestTimeout)

	var identity app.IdentityResolver = app.BackendIdentity{Source: backendClient}
	var verifier *auth.Verifier
	if len(cfg.SessionSecret) > 0 {
		verifier = auth.NewVerifier(cfg.SessionSecret)
		if cfg.SessionToken != "" {
			identity = app.TokenIdentity{Verifier: verifier, Token: cfg.SessionToken}
		}
	}

	deps := app.Deps{
		Backend:  backendClient,
		Identity: identity,
		Notify:   notify.NewCenter(notify.DefaultMax),
		Log:      log,
	}

	if cfg.Redis.Enabled() {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Snapshot cache unavailable", "addr", cfg.Redis.Addr(), "error", err)
		} else {
			deps.Snapshots = cache.NewSnapshotCache(redisClient, cache.DefaultTTL)
		}
	}

	if cfg.Kafka.Enabled() {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		deps.Events = publisher
	}

	if cfg.MySQL.Enabled() {
		store, err := database.NewMySQLHistoryStore(cfg.MySQLDSN())
		if err != nil {
			log.Warn("Play history unavailable", "host", cfg.MySQL.Host, "error", err)
		} else {
			defer store.Close()
			deps.History = store
		}
	}

	hub := view.NewHub(log, nil)
	defer hub.Close()
	deps.View = hub

	tokens := spotify.NewTokenCache(func(ctx context.Context) (string, time.Duration, error) {
		tok, err := backendClient.PlaybackToken(ctx)
		if err != nil {
			return "", 0, err
		}
		return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
	})
	spotifyClient := spotify.NewClient(cfg.SpotifyAPIURL, tokens.Token, cfg.RequestTimeout)

	var ctrl *app.Controller
	bridge := playback.NewBridge(spotifyClient, cfg.Playback, log, playback.Options{
		Advancer: advanceFunc(func(ctx context.Context) error { return ctrl.Advance(ctx) }),
		OnState: func(state models.PlaybackState) {
			ctrl.PlaybackState(state)
		},
		OnTrackChanged: func(ctx context.Context, finished models.Track) {
			ctrl.TrackFinished(ctx, finished)
		},
	})
	bridge.Bind(ctx)
	defer bridge.Close()
	deps.Player = bridge

	ctrl = app.NewController(cfg.SessionID, cfg.Playback, deps)

	if err := ctrl.Start(ctx); err != nil {
		if apperrors.NeedsRoleSelection(err) {
			log.Warn("No role for this session; waiting for role selection", "redirect", auth.SessionLostURL)
		} else {
			log.Warn("Initial queue load failed", "error", err)
		}
	}

	if ctrl.Identity().Role == role.Host {
		startPlayback(ctx, cfg, bridge, spotifyClient, log)
	}

	if cfg.RealtimeURL != "" {
		go runRealtime(ctx, cfg, ctrl, log)
	}

	var authHandler *auth.Handler
	if verifier != nil {
		authHandler = auth.NewHandler(verifier, log, auth.DefaultTTL, cfg.IsProduction())
	}
	router := view.NewRouter(view.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Auth:           authHandler,
	}, view.NewHandler(ctrl, backendClient, hub, log), log)

	srv := &http.Server{
		Addr:    ":" + cfg.ViewPort,
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("View server starting", "port", cfg.ViewPort, "session_id", cfg.SessionID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startPlayback binds the host's device and seeds the detector with its
// current state.
func startPlayback(ctx context.Context, cfg config.Config, bridge *playback.Bridge, player *spotify.Client, log logger.Logger) {
	if cfg.DeviceID != "" {
		if err := bridge.Ready(ctx, cfg.DeviceID); err != nil {
			log.Warn("Failed to transfer playback", "device_id", cfg.DeviceID, "error", err)
			return
		}
	}

	state, active, err := player.CurrentState(ctx)
	if err != nil {
		log.Warn("Failed to read playback state", "error", err)
		return
	}
	if active {
		bridge.HandleState(ctx, state)
	}
}

// runRealtime feeds channel events to the controller until the connection
// drops. Intents fall back to HTTP afterwards.
func runRealtime(ctx context.Context, cfg config.Config, ctrl *app.Controller, log logger.Logger) {
	header := http.Header{}
	if cfg.SessionToken != "" {
		header.Set("Authorization", "Bearer "+cfg.SessionToken)
	}

	ch, err := realtime.Dial(ctx, cfg.RealtimeURL, header, log)
	if err != nil {
		ctrl.Dispatch(ctx, realtime.ChannelError{Message: "could not connect to live updates"})
		log.Warn("Realtime channel unavailable", "error", err)
		return
	}
	defer ch.Close()

	ctrl.SetSender(ch)
	defer ctrl.SetSender(nil)

	err = ch.Run(ctx, func(ev realtime.Event) {
		ctrl.Dispatch(ctx, ev)
	})
	if ctx.Err() == nil {
		log.Warn("Realtime channel closed", "error", err)
		ctrl.Dispatch(ctx, realtime.ChannelError{Message: "live updates disconnected"})
	}
}
