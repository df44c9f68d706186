package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-user-admin/internal/core/cache"
	"go-user-admin/internal/domain"
	"go-user-admin/pkg/utils"
)

type CreateParams struct {
	Login    string
	Password string
	Name     string
	Gender   domain.Gender
	Birthday *time.Time
	IsAdmin  bool
}

type DetailsParams struct {
	Name     string
	Gender   domain.Gender
	Birthday *time.Time
}

// UserService 编排层：解析操作者 → 授权 → 存储读写 → 盖审计戳
type UserService struct {
	store   domain.UserStore
	log     *zap.Logger
	cache   *cache.Cache // 可选，nil 表示关闭
	userTTL time.Duration
	now     func() time.Time
}

func NewUserService(store domain.UserStore, log *zap.Logger) *UserService {
	return &UserService{
		store:   store,
		log:     log,
		userTTL: 30 * time.Second,
		now:     time.Now,
	}
}

// WithCache 打开单用户读缓存
func (s *UserService) WithCache(c *cache.Cache, ttl time.Duration) *UserService {
	s.cache = c
	if ttl > 0 {
		s.userTTL = ttl
	}
	return s
}

func userKey(login string) string { return "user:" + login }

// resolveActor 操作者必须对应一条现存记录；admin 身份取记录而非令牌
func (s *UserService) resolveActor(ctx context.Context, p domain.Principal) (*domain.User, error) {
	if p.Login == "" {
		return nil, domain.Unauthorized("missing principal")
	}
	actor, err := s.store.FindByLogin(ctx, p.Login)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, domain.Unauthorized("unknown principal")
	}
	return actor, nil
}

// actingAdmin 管理员且自身有效才算 admin（与授权规则一致）
func actingAdmin(actor *domain.User) bool { return actor.Admin && actor.IsActive() }

func (s *UserService) invalidate(ctx context.Context, logins ...string) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(logins))
	for _, l := range logins {
		keys = append(keys, userKey(l))
	}
	s.cache.Invalidate(ctx, keys...)
}

// normalizeBirthday 零值生日视同未填
func normalizeBirthday(b *time.Time) *time.Time {
	if b == nil || b.IsZero() {
		return nil
	}
	return b
}

func (s *UserService) Create(ctx context.Context, p domain.Principal, in CreateParams) (*domain.User, error) {
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	if !Authorize(actor.Login, actingAdmin(actor), in.Login, false, OpCreate) {
		return nil, domain.Forbidden("only admins can create users")
	}

	now := s.now()
	u := &domain.User{
		GUID:         utils.NewID(),
		Login:        in.Login,
		PasswordHash: utils.HashPassword(in.Password),
		Name:         in.Name,
		Gender:       in.Gender,
		Birthday:     normalizeBirthday(in.Birthday),
		Admin:        in.IsAdmin,
		CreatedOn:    now,
		CreatedBy:    actor.Login,
		ModifiedOn:   now,
		ModifiedBy:   actor.Login,
	}
	if err := s.store.Add(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, u.Login)
	s.log.Info("user created", zap.String("login", u.Login), zap.String("by", actor.Login))
	return u, nil
}

// resolveTarget 目标在先：先报 404，再谈权限
func (s *UserService) resolveTarget(ctx context.Context, login string) (*domain.User, error) {
	target, err := s.store.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, domain.NotFound("user not found")
	}
	return target, nil
}

func (s *UserService) authorizeMutation(actor, target *domain.User, op Operation) error {
	if !Authorize(actor.Login, actingAdmin(actor), target.Login, target.IsActive(), op) {
		return domain.Forbidden("insufficient rights")
	}
	return nil
}

func (s *UserService) UpdateDetails(ctx context.Context, p domain.Principal, login string, in DetailsParams) (*domain.User, error) {
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(actor, target, OpUpdateDetails); err != nil {
		return nil, err
	}

	target.Name = in.Name
	target.Gender = in.Gender
	target.Birthday = normalizeBirthday(in.Birthday)
	target.ModifiedOn = s.now()
	target.ModifiedBy = actor.Login
	if err := s.store.Update(ctx, target); err != nil {
		return nil, err
	}
	s.invalidate(ctx, target.Login)
	return target, nil
}

func (s *UserService) UpdatePassword(ctx context.Context, p domain.Principal, login, newPassword string) (*domain.User, error) {
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(actor, target, OpUpdatePassword); err != nil {
		return nil, err
	}

	target.PasswordHash = utils.HashPassword(newPassword)
	target.ModifiedOn = s.now()
	target.ModifiedBy = actor.Login
	if err := s.store.Update(ctx, target); err != nil {
		return nil, err
	}
	s.invalidate(ctx, target.Login)
	return target, nil
}

func (s *UserService) UpdateLogin(ctx context.Context, p domain.Principal, login, newLogin string) (*domain.User, error) {
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeMutation(actor, target, OpUpdateLogin); err != nil {
		return nil, err
	}
	if newLogin == target.Login {
		return nil, domain.Conflict("login already exists")
	}

	oldLogin := target.Login
	target.Login = newLogin
	target.ModifiedOn = s.now()
	target.ModifiedBy = actor.Login
	// 唯一性由存储在同一原子操作内复核
	if err := s.store.Update(ctx, target); err != nil {
		return nil, err
	}
	s.invalidate(ctx, oldLogin, newLogin)
	return target, nil
}

func (s *UserService) requireAdmin(ctx context.Context, p domain.Principal, op Operation) (*domain.User, error) {
	actor, err := s.resolveActor(ctx, p)
	if err != nil {
		return nil, err
	}
	if !Authorize(actor.Login, actingAdmin(actor), "", false, op) {
		return nil, domain.Forbidden("admin only")
	}
	return actor, nil
}

// ListActive 有效用户，按创建时间升序
func (s *UserService) ListActive(ctx context.Context, p domain.Principal) ([]domain.User, error) {
	if _, err := s.requireAdmin(ctx, p, OpListActive); err != nil {
		return nil, err
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(all))
	for _, u := range all {
		if u.IsActive() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, p domain.Principal, login string) (*domain.User, error) {
	if _, err := s.requireAdmin(ctx, p, OpGetUser); err != nil {
		return nil, err
	}
	if s.cache != nil {
		return cache.GetOrLoadJSON[domain.User](s.cache, ctx, userKey(login), s.userTTL,
			func(ctx context.Context) (*domain.User, error) {
				return s.resolveTarget(ctx, login)
			})
	}
	return s.resolveTarget(ctx, login)
}

// Authenticate 登录口令校验。查无此人 / 口令不符 / 已撤销，一律同一个 401，不泄露原因
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*domain.User, error) {
	u, err := s.store.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) || !u.IsActive() {
		s.log.Debug("authentication failed", zap.String("login", login))
		return nil, domain.Unauthorized("invalid login or password")
	}
	return u, nil
}

// ListOlderThan 生日 ≤ now-age 年的用户（含已撤销），无生日不参与
func (s *UserService) ListOlderThan(ctx context.Context, p domain.Principal, age int) ([]domain.User, error) {
	if _, err := s.requireAdmin(ctx, p, OpListOlderThan); err != nil {
		return nil, err
	}
	if age < 0 {
		return nil, domain.Invalid("age must be >= 0")
	}
	threshold := s.now().AddDate(-age, 0, 0)
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0)
	for _, u := range all {
		if u.Birthday != nil && !u.Birthday.After(threshold) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserService) Delete(ctx context.Context, p domain.Principal, login string, soft bool) (*domain.User, error) {
	actor, err := s.requireAdmin(ctx, p, OpDelete)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(ctx, login)
	if err != nil {
		return nil, err
	}

	if soft {
		now := s.now()
		target.RevokedOn = &now
		target.RevokedBy = actor.Login
		target.ModifiedOn = now
		target.ModifiedBy = actor.Login
		if err := s.store.Update(ctx, target); err != nil {
			return nil, err
		}
	} else {
		if err := s.store.Remove(ctx, login); err != nil {
			return nil, err
		}
	}
	s.invalidate(ctx, login)
	s.log.Info("user deleted",
		zap.String("login", login), zap.Bool("soft", soft), zap.String("by", actor.Login))
	return target, nil
}

// Restore 撤销恢复；目标本就有效时幂等返回
func (s *UserService) Restore(ctx context.Context, p domain.Principal, login string) (*domain.User, error) {
	actor, err := s.requireAdmin(ctx, p, OpRestore)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(ctx, login)
	if err != nil {
		return nil, err
	}
	if target.IsActive() {
		return target, nil
	}

	target.RevokedOn = nil
	target.RevokedBy = ""
	target.ModifiedOn = s.now()
	target.ModifiedBy = actor.Login
	if err := s.store.Update(ctx, target); err != nil {
		return nil, err
	}
	s.invalidate(ctx, login)
	s.log.Info("user restored", zap.String("login", login), zap.String("by", actor.Login))
	return target, nil
}

// ListLogins 全量登录名（含已撤销）
func (s *UserService) ListLogins(ctx context.Context, p domain.Principal) ([]string, error) {
	if _, err := s.requireAdmin(ctx, p, OpListLogins); err != nil {
		return nil, err
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, u := range all {
		out = append(out, u.Login)
	}
	return out, nil
}
