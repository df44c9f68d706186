package router

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"go-user-admin/internal/core/auth"
	"go-user-admin/internal/domain"
	"go-user-admin/internal/service"
	httpez "go-user-admin/internal/transport/http/ez"
)

// ---------- 响应投影（不含口令） ----------

type userDto struct {
	Login    string     `json:"login"`
	Name     string     `json:"name"`
	Gender   int        `json:"gender"`
	Birthday *time.Time `json:"birthday,omitempty"`
	IsActive bool       `json:"isActive"`
}

// userDetailsDto 按 login 查询时的投影，不回显 login
type userDetailsDto struct {
	Name     string     `json:"name"`
	Gender   int        `json:"gender"`
	Birthday *time.Time `json:"birthday,omitempty"`
	IsActive bool       `json:"isActive"`
}

func toUserDto(u *domain.User) userDto {
	return userDto{
		Login:    u.Login,
		Name:     u.Name,
		Gender:   int(u.Gender),
		Birthday: u.Birthday,
		IsActive: u.IsActive(),
	}
}

func toUserDtos(us []domain.User) []userDto {
	out := make([]userDto, 0, len(us))
	for i := range us {
		out = append(out, toUserDto(&us[i]))
	}
	return out
}

// login / password 只允许字母数字（原始字符串请求体绕过 binding，手动校验）
var alnumRe = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// MountUserActions 在 /users 下挂载全部接口；public 无鉴权，authed 已挂 AuthJWT
func MountUserActions(public, authed *gin.RouterGroup, svc *service.UserService, jwter *auth.JWTer) {
	ezPublic := httpez.New(public)
	ezAuth := httpez.New(authed)

	// --- POST /users/login 认证并发放令牌 ---
	type loginIn struct {
		Login    string `json:"login"    binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	type tokenOut struct {
		Token string `json:"token"`
	}
	httpez.Register[loginIn, tokenOut](ezPublic, httpez.Action[loginIn, tokenOut]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ domain.Principal, in *loginIn) (tokenOut, error) {
			u, err := svc.Authenticate(c.Request.Context(), in.Login, in.Password)
			if err != nil {
				return tokenOut{}, err
			}
			tok, err := jwter.Issue(u.Login, u.Admin)
			if err != nil {
				return tokenOut{}, domain.Internal("issue token failed", err)
			}
			return tokenOut{Token: tok}, nil
		},
	})

	// --- POST /users 创建用户（仅管理员） ---
	type createIn struct {
		Login    string     `json:"login"    binding:"required,alphanum"`
		Password string     `json:"password" binding:"required,alphanum"`
		Name     string     `json:"name"     binding:"required,alpha"`
		Gender   int        `json:"gender"   binding:"oneof=0 1 2"`
		Birthday *time.Time `json:"birthday"`
		IsAdmin  bool       `json:"isAdmin"`
	}
	httpez.Register[createIn, userDto](ezAuth, httpez.Action[createIn, userDto]{
		Method: http.MethodPost,
		Path:   "",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, in *createIn) (userDto, error) {
			u, err := svc.Create(c.Request.Context(), p, service.CreateParams{
				Login:    in.Login,
				Password: in.Password,
				Name:     in.Name,
				Gender:   domain.Gender(in.Gender),
				Birthday: in.Birthday,
				IsAdmin:  in.IsAdmin,
			})
			if err != nil {
				return userDto{}, err
			}
			return toUserDto(u), nil
		},
	})

	// --- PUT /users/:login/details 改名字/性别/生日（管理员或本人且有效） ---
	type detailsIn struct {
		NewName     string     `json:"newName"   binding:"required,alpha"`
		NewGender   int        `json:"newGender" binding:"oneof=0 1 2"`
		NewBirthday *time.Time `json:"newBirthday"`
	}
	httpez.Register[detailsIn, userDto](ezAuth, httpez.Action[detailsIn, userDto]{
		Method: http.MethodPut,
		Path:   "/:login/details",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, in *detailsIn) (userDto, error) {
			u, err := svc.UpdateDetails(c.Request.Context(), p, c.Param("login"), service.DetailsParams{
				Name:     in.NewName,
				Gender:   domain.Gender(in.NewGender),
				Birthday: in.NewBirthday,
			})
			if err != nil {
				return userDto{}, err
			}
			return toUserDto(u), nil
		},
	})

	// --- PUT /users/:login/password 请求体是原始 JSON 字符串 ---
	httpez.Register[string, userDto](ezAuth, httpez.Action[string, userDto]{
		Method: http.MethodPut,
		Path:   "/:login/password",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, in *string) (userDto, error) {
			if !alnumRe.MatchString(*in) {
				return userDto{}, domain.Invalid("password must be alphanumeric")
			}
			u, err := svc.UpdatePassword(c.Request.Context(), p, c.Param("login"), *in)
			if err != nil {
				return userDto{}, err
			}
			return toUserDto(u), nil
		},
	})

	// --- PUT /users/:login/login 改登录名，重名 → 409 ---
	httpez.Register[string, userDto](ezAuth, httpez.Action[string, userDto]{
		Method: http.MethodPut,
		Path:   "/:login/login",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, in *string) (userDto, error) {
			if !alnumRe.MatchString(*in) {
				return userDto{}, domain.Invalid("login must be alphanumeric")
			}
			u, err := svc.UpdateLogin(c.Request.Context(), p, c.Param("login"), *in)
			if err != nil {
				return userDto{}, err
			}
			return toUserDto(u), nil
		},
	})

	// --- GET /users/active 有效用户列表，创建时间升序（仅管理员） ---
	httpez.Register[struct{}, []userDto](ezAuth, httpez.Action[struct{}, []userDto]{
		Method: http.MethodGet,
		Path:   "/active",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, _ *struct{}) ([]userDto, error) {
			us, err := svc.ListActive(c.Request.Context(), p)
			if err != nil {
				return nil, err
			}
			return toUserDtos(us), nil
		},
	})

	// --- GET /users/older-than?age=N（仅管理员） ---
	type olderQ struct {
		Age int `form:"age" binding:"gte=0"`
	}
	httpez.Register[olderQ, []userDto](ezAuth, httpez.Action[olderQ, []userDto]{
		Method: http.MethodGet,
		Path:   "/older-than",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, in *olderQ) ([]userDto, error) {
			us, err := svc.ListOlderThan(c.Request.Context(), p, in.Age)
			if err != nil {
				return nil, err
			}
			return toUserDtos(us), nil
		},
	})

	// --- GET /users/logins 全量登录名（仅管理员） ---
	httpez.Register[struct{}, []string](ezAuth, httpez.Action[struct{}, []string]{
		Method: http.MethodGet,
		Path:   "/logins",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, _ *struct{}) ([]string, error) {
			return svc.ListLogins(c.Request.Context(), p)
		},
	})

	// --- GET /users/:login 单用户投影（仅管理员） ---
	httpez.Register[struct{}, userDetailsDto](ezAuth, httpez.Action[struct{}, userDetailsDto]{
		Method: http.MethodGet,
		Path:   "/:login",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, _ *struct{}) (userDetailsDto, error) {
			u, err := svc.Get(c.Request.Context(), p, c.Param("login"))
			if err != nil {
				return userDetailsDto{}, err
			}
			return userDetailsDto{
				Name:     u.Name,
				Gender:   int(u.Gender),
				Birthday: u.Birthday,
				IsActive: u.IsActive(),
			}, nil
		},
	})

	// --- DELETE /users/:login?isSoftDelete=bool 默认软删（仅管理员） ---
	httpez.Register[struct{}, userDto](ezAuth, httpez.Action[struct{}, userDto]{
		Method: http.MethodDelete,
		Path:   "/:login",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, _ *struct{}) (userDto, error) {
			soft := !strings.EqualFold(c.DefaultQuery("isSoftDelete", "true"), "false")
			u, err := svc.Delete(c.Request.Context(), p, c.Param("login"), soft)
			if err != nil {
				return userDto{}, err
			}
			return toUserDto(u), nil
		},
	})

	// --- PUT /users/:login/restore 恢复软删用户（仅管理员，幂等） ---
	httpez.Register[struct{}, userDto](ezAuth, httpez.Action[struct{}, userDto]{
		Method: http.MethodPut,
		Path:   "/:login/restore",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, p domain.Principal, _ *struct{}) (userDto, error) {
			u, err := svc.Restore(c.Request.Context(), p, c.Param("login"))
			if err != nil {
				return userDto{}, err
			}
			return toUserDto(u), nil
		},
	})
}
