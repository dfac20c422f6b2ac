package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-in-web/api"
	"github.com/hoshinonyaruko/snake-in-web/config"
	"github.com/hoshinonyaruko/snake-in-web/engine"
	"github.com/hoshinonyaruko/snake-in-web/memimg"
	"github.com/hoshinonyaruko/snake-in-web/render"
	"github.com/hoshinonyaruko/snake-in-web/sqlite"
	"github.com/hoshinonyaruko/snake-in-web/structs"
	"github.com/hoshinonyaruko/snake-in-web/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "./config.json", "path of the config file")
	termMode := flag.Bool("term", false, "play in the terminal instead of serving HTTP")
	flag.Parse()

	if *termMode {
		// 终端模式下日志会弄乱画面
		zerolog.SetGlobalLevel(zerolog.Disabled)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize the configuration
	cfg := config.LoadConfig(*configPath)
	EnsureFoldersExist(cfg.FacesDir, "static")

	store, err := sqlite.Open(cfg.DBPath, cfg.Variant)
	if err != nil {
		log.Fatal().Err(err).Msg("open score database")
	}
	defer store.Close()

	// 载入头像到内存，并检测热更新
	var faces *memimg.Faces
	if cfg.Variant == config.VariantFaces {
		faces = memimg.NewFaces(cfg.FacesDir, render.FaceSize(cfg.Blocksize))
		if err := faces.Load(); err != nil {
			log.Warn().Err(err).Msg("load faces")
		}
		if err := faces.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("watch faces")
		}
	}
	renderer := render.New(cfg.Blocksize, faces)

	eng, err := engine.New(ctx, engine.Options{
		Settings: cfg.GameSettings(),
		Variant:  cfg.Variant,
		Store:    store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create game")
	}
	defer eng.Stop()
	if cfg.Player != "" {
		eng.SetPlayer(api.CleanPlayerName(cfg.Player))
	}

	if *termMode {
		ui := term.New(eng)
		eng.AddPresenter(ui)
		if err := ui.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("terminal")
		}
		return
	}

	hub := api.NewHub()
	defer hub.Close()
	eng.AddPresenter(hub)
	eng.AddPresenter(finalFrameSaver(renderer, filepath.Join("static", "last_game.png")))

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(eng, renderer, store, hub)
	// 从配置单例读取端口 监听
	srv := &http.Server{Addr: ":" + config.GetConfigValue("port").(string), Handler: router}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("variant", cfg.Variant).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// finalFrameSaver 游戏结束时把最后一帧存成图片
func finalFrameSaver(renderer *render.Renderer, path string) engine.Presenter {
	return engine.PresenterFunc(func(snap structs.Snapshot) {
		if !snap.Over {
			return
		}
		go func() {
			if err := renderer.SavePNG(path, snap); err != nil {
				log.Error().Err(err).Str("path", path).Msg("save final frame")
			}
		}()
	})
}

// EnsureFoldersExist 检查并创建必需的文件夹
func EnsureFoldersExist(folders ...string) {
	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			if err := os.MkdirAll(folder, 0755); err != nil {
				log.Fatal().Err(err).Str("folder", folder).Msg("failed to create directory")
			}
			log.Info().Str("folder", folder).Msg("created directory")
		} else {
			log.Debug().Str("folder", folder).Msg("directory already exists")
		}
	}
}
