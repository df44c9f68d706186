package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-user-admin/internal/core/auth"
	"go-user-admin/internal/service"
	"go-user-admin/internal/store"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwter := &auth.JWTer{
		Secret:   []byte("test-secret"),
		Issuer:   "go-user-admin",
		Audience: "go-user-admin-api",
		TTL:      time.Hour,
	}
	svc := service.NewUserService(store.NewMemory(), zap.NewNop())
	return NewAPIEngine(zap.NewNop(), svc, jwter)
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func login(t *testing.T, r *gin.Engine, user, pass string) string {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{
		"login": user, "password": pass,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

type userDtoOut struct {
	Login    string     `json:"login"`
	Name     string     `json:"name"`
	Gender   int        `json:"gender"`
	Birthday *time.Time `json:"birthday"`
	IsActive bool       `json:"isActive"`
}

func createUser(t *testing.T, r *gin.Engine, token, login, pass, name string, admin bool) userDtoOut {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/api/v1/users", token, gin.H{
		"login": login, "password": pass, "name": name, "gender": 2, "isAdmin": admin,
	})
	require.Equal(t, http.StatusOK, w.Code, env.Msg)
	var dto userDtoOut
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	return dto
}

func TestLogin(t *testing.T) {
	r := newTestEngine(t)

	// 种子管理员可登录
	tok := login(t, r, "Admin", "Admin123")
	require.NotEmpty(t, tok)

	// 错口令 → 401，信息不区分原因
	w, env := do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{
		"login": "Admin", "password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid login or password", env.Msg)
}

func TestBearerRequired(t *testing.T) {
	r := newTestEngine(t)

	w, _ := do(t, r, http.MethodGet, "/api/v1/users/active", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/users/active", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateUser(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")

	dto := createUser(t, r, tok, "bob", "pw1", "Bob", false)
	require.Equal(t, "bob", dto.Login)
	require.True(t, dto.IsActive)
	require.Nil(t, dto.Birthday)

	// 重复登录名 → 409
	w, _ := do(t, r, http.MethodPost, "/api/v1/users", tok, gin.H{
		"login": "bob", "password": "pw2", "name": "Bobby", "gender": 1,
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// 非法字段 → 400
	w, _ = do(t, r, http.MethodPost, "/api/v1/users", tok, gin.H{
		"login": "ev!l", "password": "pw", "name": "Eve", "gender": 0,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/v1/users", tok, gin.H{
		"login": "eve", "password": "pw", "name": "Eve", "gender": 7,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// 普通用户建号 → 403
	bobTok := login(t, r, "bob", "pw1")
	w, _ = do(t, r, http.MethodPost, "/api/v1/users", bobTok, gin.H{
		"login": "eve", "password": "pw", "name": "Eve", "gender": 0,
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateDetailsAuthorization(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")
	createUser(t, r, tok, "bob", "pw1", "Bob", false)
	createUser(t, r, tok, "alice", "pw2", "Alice", false)
	bobTok := login(t, r, "bob", "pw1")

	// 本人改本人 → 200
	w, env := do(t, r, http.MethodPut, "/api/v1/users/bob/details", bobTok, gin.H{
		"newName": "Robert", "newGender": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var dto userDtoOut
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	require.Equal(t, "Robert", dto.Name)

	// 改别人 → 403
	w, _ = do(t, r, http.MethodPut, "/api/v1/users/alice/details", bobTok, gin.H{
		"newName": "Hacked", "newGender": 0,
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// 不存在 → 404
	w, _ = do(t, r, http.MethodPut, "/api/v1/users/ghost/details", tok, gin.H{
		"newName": "Ghost", "newGender": 2,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePasswordRawBody(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")
	createUser(t, r, tok, "bob", "pw1", "Bob", false)
	bobTok := login(t, r, "bob", "pw1")

	// 请求体是原始 JSON 字符串
	w, _ := do(t, r, http.MethodPut, "/api/v1/users/bob/password", bobTok, "newpw2")
	require.Equal(t, http.StatusOK, w.Code)

	// 新口令生效
	login(t, r, "bob", "newpw2")

	// 非字母数字 → 400
	w, _ = do(t, r, http.MethodPut, "/api/v1/users/bob/password", bobTok, "bad pass!")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLoginConflict(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")
	createUser(t, r, tok, "bob", "pw1", "Bob", false)
	createUser(t, r, tok, "alice", "pw2", "Alice", false)
	bobTok := login(t, r, "bob", "pw1")

	w, _ := do(t, r, http.MethodPut, "/api/v1/users/bob/login", bobTok, "alice")
	require.Equal(t, http.StatusConflict, w.Code)

	w, env := do(t, r, http.MethodPut, "/api/v1/users/bob/login", bobTok, "robert")
	require.Equal(t, http.StatusOK, w.Code)
	var dto userDtoOut
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	require.Equal(t, "robert", dto.Login)
}

func TestGetUserProjection(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")
	createUser(t, r, tok, "bob", "pw1", "Bob", false)

	w, env := do(t, r, http.MethodGet, "/api/v1/users/bob", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// UserDetailsDto 不含 login，也绝不回显口令
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	require.NotContains(t, raw, "login")
	require.NotContains(t, raw, "password")
	require.NotContains(t, raw, "passwordHash")
	require.Contains(t, raw, "name")
	require.Contains(t, raw, "isActive")

	w, _ = do(t, r, http.MethodGet, "/api/v1/users/ghost", tok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// 普通用户 → 403
	bobTok := login(t, r, "bob", "pw1")
	w, _ = do(t, r, http.MethodGet, "/api/v1/users/bob", bobTok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteRestoreFlow(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")
	createUser(t, r, tok, "bob", "pw1", "Bob", false)

	// 默认软删
	w, env := do(t, r, http.MethodDelete, "/api/v1/users/bob", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dto userDtoOut
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	require.False(t, dto.IsActive)

	// 软删后登录失败
	w, _ = do(t, r, http.MethodPost, "/api/v1/users/login", "", gin.H{
		"login": "bob", "password": "pw1",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// 恢复
	w, env = do(t, r, http.MethodPut, "/api/v1/users/bob/restore", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	require.True(t, dto.IsActive)
	login(t, r, "bob", "pw1")

	// 硬删后 404
	w, _ = do(t, r, http.MethodDelete, "/api/v1/users/bob?isSoftDelete=false", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, r, http.MethodGet, "/api/v1/users/bob", tok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEndpoints(t *testing.T) {
	r := newTestEngine(t)
	tok := login(t, r, "Admin", "Admin123")
	createUser(t, r, tok, "bob", "pw1", "Bob", false)
	createUser(t, r, tok, "alice", "pw2", "Alice", false)
	w, _ := do(t, r, http.MethodDelete, "/api/v1/users/alice", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// active：不含已撤销
	w, env := do(t, r, http.MethodGet, "/api/v1/users/active", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var us []userDtoOut
	require.NoError(t, json.Unmarshal(env.Data, &us))
	logins := make([]string, 0, len(us))
	for _, u := range us {
		logins = append(logins, u.Login)
	}
	require.Equal(t, []string{"Admin", "bob"}, logins)

	// logins：全量
	w, env = do(t, r, http.MethodGet, "/api/v1/users/logins", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []string
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.ElementsMatch(t, []string{"Admin", "bob", "alice"}, all)

	// older-than：负数 → 400
	w, _ = do(t, r, http.MethodGet, "/api/v1/users/older-than?age=-1", tok, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	w, env = do(t, r, http.MethodGet, "/api/v1/users/older-than?age=30", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &us))
	require.Empty(t, us) // 没人填过生日
}

func TestHealth(t *testing.T) {
	r := newTestEngine(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
