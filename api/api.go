package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/snake-in-web/engine"
	"github.com/hoshinonyaruko/snake-in-web/input"
	"github.com/hoshinonyaruko/snake-in-web/render"
	"github.com/hoshinonyaruko/snake-in-web/structs"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

const (
	maxPlayerName   = 32
	defaultTopGames = 10
	maxTopGames     = 100
)

// ScoreLister 读取历史成绩
type ScoreLister interface {
	TopGames(ctx context.Context, limit int) ([]structs.GameRecord, error)
}

var namePolicy = bluemonday.StrictPolicy()

// NewRouter wires every endpoint. scores and hub may be nil.
func NewRouter(eng *engine.Engine, renderer *render.Renderer, scores ScoreLister, hub *Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestid.New(), requestLogger())

	router.GET("/state", StateHandler(eng))
	// 开始 暂停 继续 重新开始
	router.POST("/start", ControlHandler(eng, (*engine.Engine).Start, true))
	router.POST("/restart", ControlHandler(eng, (*engine.Engine).Restart, true))
	router.POST("/pause", ControlHandler(eng, (*engine.Engine).Pause, false))
	router.POST("/resume", ControlHandler(eng, (*engine.Engine).Resume, false))
	router.POST("/toggle", ControlHandler(eng, (*engine.Engine).Toggle, false))
	// 处理玩家改变方向
	router.POST("/direction", DirectionHandler(eng))
	router.POST("/swipe", SwipeHandler(eng))
	// 渲染函数 返回图片
	router.GET("/render", RenderHandler(eng, renderer))
	if scores != nil {
		router.GET("/scores", ScoresHandler(scores))
	}
	if hub != nil {
		router.GET("/ws", hub.Handler(eng))
	}
	router.Static("/static", "./static") // 静态文件服务
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("request_id", requestid.Get(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// CleanPlayerName strips markup and limits the name length.
func CleanPlayerName(raw string) string {
	name := strings.TrimSpace(namePolicy.Sanitize(raw))
	if utf8.RuneCountInString(name) > maxPlayerName {
		name = string([]rune(name)[:maxPlayerName])
	}
	return name
}

func StateHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, eng.Snapshot())
	}
}

// ControlHandler runs one engine action. withName lets the request set the player name.
func ControlHandler(eng *engine.Engine, action func(*engine.Engine) structs.Snapshot, withName bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if withName {
			if name := CleanPlayerName(c.Query("name")); name != "" {
				eng.SetPlayer(name)
			}
		}
		c.JSON(http.StatusOK, action(eng))
	}
}

func DirectionHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("direction")
		d, ok := input.FromKey(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid direction '" + raw + "' provided"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accepted": eng.RequestDirection(d)})
	}
}

func SwipeHandler(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		dx, errX := strconv.ParseFloat(c.Query("dx"), 64)
		dy, errY := strconv.ParseFloat(c.Query("dy"), 64)
		if errX != nil || errY != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid query parameters: dx, dy"})
			return
		}
		d, ok := input.FromSwipe(dx, dy)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"accepted": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accepted": eng.RequestDirection(d), "direction": d})
	}
}

func RenderHandler(eng *engine.Engine, renderer *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Type", "image/png")
		c.Status(http.StatusOK)
		if err := renderer.WritePNG(c.Writer, eng.Snapshot()); err != nil {
			log.Error().Err(err).Str("request_id", requestid.Get(c)).Msg("render failed")
		}
	}
}

func ScoresHandler(scores ScoreLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultTopGames
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = min(n, maxTopGames)
		}
		games, err := scores.TopGames(c.Request.Context(), limit)
		if err != nil {
			log.Error().Err(err).Str("request_id", requestid.Get(c)).Msg("load scores failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to load scores"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"games": games})
	}
}
