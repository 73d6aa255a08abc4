package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/wire"
	"github.com/rs/cors"
	"github.com/sabicash/sabicash/handler/demo"
	"github.com/sabicash/sabicash/handler/hc"
	"github.com/spf13/viper"
)

var serverSet = wire.NewSet(
	provideDemoConfig,
	demo.New,
	provideServer,
)

func provideDemoConfig(v *viper.Viper) demo.Config {
	v.SetDefault("demo.token_ttl", "15m")

	return demo.Config{
		Secret:   v.GetString("demo.secret"),
		TokenTTL: v.GetDuration("demo.token_ttl"),
	}
}

func provideServer(backend *demo.Server) *http.Server {
	m := chi.NewMux()
	m.Use(middleware.RealIP)
	m.Use(middleware.Logger)
	m.Use(middleware.Recoverer)
	m.Use(cors.AllowAll().Handler)

	m.Mount("/hc", hc.Handler(version, commit))
	m.Mount("/", backend.Handler())

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", opt.port),
		Handler: m,
	}
}
