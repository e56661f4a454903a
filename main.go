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

	cfg "github.com/example/twitchbroker/internal/config"
	"github.com/gorilla/mux"
)

type App struct {
	Store       TokenStore
	Flow        *Flow
	rateLimiter *RateLimiter
}

func main() {
	c, err := cfg.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var store TokenStore
	switch c.StoreAdapter {
	case "file":
		f, err := NewFileStore(c.CacheDir)
		if err != nil {
			log.Fatalf("file store init: %v", err)
		}
		store = f
	case "sqlite":
		s, err := NewSQLiteStore(c.SQLiteFile)
		if err != nil {
			log.Fatalf("sqlite init: %v", err)
		}
		store = s
	case "postgres":
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			log.Fatalf("postgres config error: %v", err)
		}

		// Apply migrations before connecting
		log.Println("Applying database migrations...")
		if err := ApplyMigrations("./migrations", dsn); err != nil {
			log.Printf("migrations warning: %v", err)
		} else {
			log.Println("Migrations applied successfully")
		}

		p, err := NewPostgresStore(dsn)
		if err != nil {
			log.Fatalf("postgres init: %v", err)
		}
		store = p
		log.Println("Connected to PostgreSQL token store")
	case "memory":
		log.Println("Using in-memory token store (not recommended for production)")
		store = NewMemoryStore()
	default:
		log.Fatalf("unsupported STORE_ADAPTER: %s (supported: file, sqlite, postgres, memory)", c.StoreAdapter)
	}

	router := NewCommandRouter()
	bot := NewBot(c.BotChannel, router)
	registerCommands(router, bot)

	states := NewStateRegistry(DefaultStateTTL)
	flow := NewFlow(c, states, store, bot.Attach)
	app := &App{Store: store, Flow: flow}

	// Rehydrate cached credentials and reconnect the bot before taking
	// traffic.
	boot := &Bootstrap{Store: store, Users: flow.Users, BotUser: c.BotUser, Attach: bot.Attach}
	if err := boot.LoadAll(context.Background()); err != nil {
		log.Printf("bootstrap: %v", err)
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(SecurityHeaders)
	r.Use(app.Logging)

	// Health check endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if p, ok := app.Store.(interface{ ping() bool }); ok {
			if !p.ping() {
				w.WriteHeader(503)
				w.Write([]byte(`{"ready":false}`))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte(`{"ready":true}`))
	}).Methods("GET")

	// OAuth endpoints, rate limited per client IP
	oauth := r.PathPrefix("/twitch").Subrouter()
	oauth.Use(app.RateLimit)
	oauth.HandleFunc("/auth", app.HandleAuth).Methods("GET")
	oauth.HandleFunc("/auth-callback", app.HandleAuthCallback).Methods("GET")

	// Static assets and the landing page
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(c.PublicDir))).Methods("GET")

	srv := &http.Server{Handler: r, Addr: ":" + c.Port, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		fmt.Println("Starting Go server on", c.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	states.Stop()
	if err := bot.Close(); err != nil {
		log.Printf("bot close: %v", err)
	}
	if closer, ok := app.Store.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown failed:%+v", err)
	}
	fmt.Println("Server exited properly")
}

// registerCommands wires the fixed chat command set. Handlers are side
// effects only; the router observes no return value.
func registerCommands(router *CommandRouter, bot *Bot) {
	router.Handle("ping", func(sender, text string) {
		bot.Say("pong!")
	})
	router.Handle("hello", func(sender, text string) {
		bot.Say(fmt.Sprintf("hey there, %s!", sender))
	})
	router.Handle("game", func(sender, text string) {
		log.Printf("command: %s requested game event: %q", sender, text)
	})
}
