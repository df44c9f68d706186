package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-user-admin/internal/core/auth"
	"go-user-admin/internal/service"
	mdw "go-user-admin/internal/transport/http/middleware"
)

func NewAPIEngine(l *zap.Logger, svc *service.UserService, jwter *auth.JWTer) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		cors.Default(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// /users：login 公共，其余走 Bearer 鉴权
	public := api.Group("/users")
	authed := api.Group("/users")
	authed.Use(mdw.AuthJWT(jwter))

	MountUserActions(public, authed, svc, jwter)

	return r
}
