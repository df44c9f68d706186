package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-user-admin/internal/domain"
	resp "go-user-admin/internal/transport/http/response"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// CtxPrincipal 鉴权中间件写入的操作者
const CtxPrincipal = "principal"

// Principal 从上下文取操作者；未鉴权分组拿到零值
func Principal(c *gin.Context) domain.Principal {
	if v, ok := c.Get(CtxPrincipal); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}

// Action 非 CRUD 一行注册：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/login"、"/:login/restore"
	Binder  Binder
	Auth    bool // 要求已解析 principal（分组中间件负责解析）
	Handler func(c *gin.Context, p domain.Principal, in *I) (O, error)
}

// statusOf 错误分类 → HTTP 状态
func statusOf(k domain.Kind) int {
	switch k {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Register 注册动作接口：绑定 → principal 检查 → 执行 → 统一错误映射
func Register[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		p := Principal(c)
		if a.Auth && p.Login == "" {
			c.JSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default: // BindNone
		}
		if bindErr != nil {
			c.JSON(http.StatusBadRequest, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, p, &in)
		if err != nil {
			kind := domain.KindOf(err)
			status := statusOf(kind)
			msg := err.Error()
			if kind == domain.KindInternal {
				// 内部错误不外泄
				msg = "internal error"
			}
			c.JSON(status, resp.Error(status, msg))
			return
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}
