package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tiback/tiback-client/internal/adapters/secondary/notify"
	"github.com/tiback/tiback-client/internal/adapters/secondary/objectstore"
	"github.com/tiback/tiback-client/internal/adapters/secondary/realtime"
	"github.com/tiback/tiback-client/internal/adapters/secondary/rest"
	"github.com/tiback/tiback-client/internal/adapters/secondary/storage"
	"github.com/tiback/tiback-client/internal/config"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/services"
	"github.com/tiback/tiback-client/internal/core/store"
	"github.com/tiback/tiback-client/internal/infrastructure/logging"
)

// app is the wired client: one store shared by every service.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    *printer

	store *store.Store
	api   *rest.Client

	auth     *services.AuthService
	tickets  *services.TicketService
	comments *services.CommentService
	users    *services.UserService
	chat     *services.ChatService
	media    *services.MediaService
	sync     *services.SyncService

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, out: &printer{w: io.Discard}}

	api, err := rest.NewClient(rest.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	a.api = api

	kv, err := a.openKV(ctx)
	if err != nil {
		return nil, err
	}

	wsURL := cfg.WebSocket.URL
	if wsURL == "" {
		wsURL = cfg.API.BaseURL
	}
	transport, err := realtime.NewTransport(realtime.Config{
		URL:              wsURL,
		HandshakeTimeout: cfg.WebSocket.HandshakeTimeout,
		SendBuffer:       cfg.WebSocket.SendBuffer,
		Logger:           logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	sinks, err := a.buildSinks()
	if err != nil {
		a.Close()
		return nil, err
	}

	uploader, err := a.buildUploader(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = store.New(cfg.Sync.NotificationRetention, logger)
	a.auth = services.NewAuthService(api, storage.NewSessionStore(kv, logger), a.store, logger)
	a.tickets = services.NewTicketService(api, a.store, logger)
	a.comments = services.NewCommentService(api, a.store, logger)
	a.users = services.NewUserService(api, a.store, logger)
	a.chat = services.NewChatService(api, a.store, logger)
	a.media = services.NewMediaService(api, uploader, a.store, logger)
	a.sync = services.NewSyncService(transport, a.store, sinks, services.SyncConfig{
		PollInterval:   cfg.Sync.PollInterval,
		RefetchRate:    cfg.Sync.RefetchRPS,
		RefetchBurst:   cfg.Sync.RefetchBurst,
		RefetchTimeout: cfg.Sync.RefetchTimeout,
		OutboxSize:     cfg.Sync.OutboxSize,
	}, logger)
	a.sync.RegisterResources(a.tickets, a.comments, a.chat)

	return a, nil
}

func (a *app) openKV(ctx context.Context) (ports.KeyValueStore, error) {
	s := a.cfg.Session
	switch s.Backend {
	case config.SessionBackendMemory:
		return storage.NewMemoryKV(), nil
	case config.SessionBackendRedis:
		kv, err := storage.NewRedisKV(ctx, storage.RedisConfig{
			Addr:      s.Redis.Addr,
			Password:  s.Redis.Password,
			DB:        s.Redis.DB,
			Prefix:    s.Redis.Prefix,
			Namespace: s.Namespace,
			TTL:       s.TTL,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil
	default:
		return storage.NewFileKV(s.Path, s.Passphrase)
	}
}

func (a *app) buildSinks() ([]ports.NotificationSink, error) {
	sinks := []ports.NotificationSink{notify.NewLogSink(a.logger)}

	if a.cfg.Kafka.Enabled() {
		kafka, err := notify.NewKafkaSink(notify.KafkaConfig{
			Brokers:      a.cfg.Kafka.Brokers,
			Topic:        a.cfg.Kafka.Topic,
			WriteTimeout: a.cfg.Kafka.WriteTimeout,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kafka.Close)
		sinks = append(sinks, kafka)
	}
	return sinks, nil
}

// buildUploader picks the object store when configured, the backend otherwise.
func (a *app) buildUploader(ctx context.Context) (ports.ImageUploader, error) {
	if !a.cfg.MinIO.Enabled() {
		return a.api, nil
	}

	m := a.cfg.MinIO
	uploader, err := objectstore.NewMinIOUploader(objectstore.Config{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Bucket:    m.Bucket,
		Region:    m.Region,
		UseSSL:    m.UseSSL,
		PublicURL: m.PublicURL,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return uploader, nil
}

// requireSession restores the persisted session or fails. The returned
// context carries the session identity for logging.
func (a *app) requireSession(ctx context.Context) (context.Context, error) {
	if !a.auth.Restore(ctx) {
		return ctx, fmt.Errorf("not logged in; run 'tiback login' first")
	}
	auth := a.store.State().Auth
	return logging.WithSession(ctx, auth.UserID(), string(auth.CurrentRole())), nil
}

// Close stops background work and releases connections. The session is
// left in place.
func (a *app) Close() {
	if a.sync != nil {
		a.sync.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
