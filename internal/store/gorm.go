package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"go-user-admin/internal/domain"
	"go-user-admin/pkg/utils"
)

type userRow struct {
	GUID         string `gorm:"primaryKey;type:varchar(32)"`
	Login        string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Name         string `gorm:"size:64;not null"`
	Gender       int    `gorm:"not null"`
	Birthday     *time.Time
	Admin        bool      `gorm:"not null"`
	CreatedOn    time.Time `gorm:"not null;index"`
	CreatedBy    string    `gorm:"size:64;not null"`
	ModifiedOn   time.Time `gorm:"not null"`
	ModifiedBy   string    `gorm:"size:64;not null"`
	RevokedOn    *time.Time
	RevokedBy    string `gorm:"size:64"`
}

func (userRow) TableName() string { return "users" }

func toRow(u *domain.User) *userRow {
	return &userRow{
		GUID:         u.GUID,
		Login:        u.Login,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		Gender:       int(u.Gender),
		Birthday:     u.Birthday,
		Admin:        u.Admin,
		CreatedOn:    u.CreatedOn,
		CreatedBy:    u.CreatedBy,
		ModifiedOn:   u.ModifiedOn,
		ModifiedBy:   u.ModifiedBy,
		RevokedOn:    u.RevokedOn,
		RevokedBy:    u.RevokedBy,
	}
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		GUID:         r.GUID,
		Login:        r.Login,
		PasswordHash: r.PasswordHash,
		Name:         r.Name,
		Gender:       domain.Gender(r.Gender),
		Birthday:     r.Birthday,
		Admin:        r.Admin,
		CreatedOn:    r.CreatedOn,
		CreatedBy:    r.CreatedBy,
		ModifiedOn:   r.ModifiedOn,
		ModifiedBy:   r.ModifiedBy,
		RevokedOn:    r.RevokedOn,
		RevokedBy:    r.RevokedBy,
	}
}

// Gorm mysql/postgres 存储，login 唯一性交给唯一索引
type Gorm struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB, automigrate bool) (*Gorm, error) {
	if automigrate {
		if err := db.AutoMigrate(&userRow{}); err != nil {
			return nil, err
		}
	}
	g := &Gorm{db: db}
	if err := g.seed(); err != nil {
		return nil, err
	}
	return g, nil
}

// seed 空表时补一个内置管理员
func (g *Gorm) seed() error {
	var n int64
	if err := g.db.Model(&userRow{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	now := time.Now()
	row := &userRow{
		GUID:         utils.NewID(),
		Login:        "Admin",
		PasswordHash: utils.HashPassword("Admin123"),
		Name:         "Administrator",
		Gender:       int(domain.GenderUnknown),
		Admin:        true,
		CreatedOn:    now,
		CreatedBy:    "System",
		ModifiedOn:   now,
		ModifiedBy:   "System",
	}
	err := g.db.Create(row).Error
	if err != nil && isDupKey(err) {
		// 多实例并发启动时另一实例已写入
		return nil
	}
	return err
}

func (g *Gorm) Add(ctx context.Context, u *domain.User) error {
	if err := g.db.WithContext(ctx).Create(toRow(u)).Error; err != nil {
		if isDupKey(err) {
			return domain.Conflict("login already exists")
		}
		return domain.Internal("add user", err)
	}
	return nil
}

func (g *Gorm) Update(ctx context.Context, u *domain.User) error {
	res := g.db.WithContext(ctx).
		Model(&userRow{}).
		Where("guid = ?", u.GUID).
		Select("*").Omit("guid").
		Updates(toRow(u))
	if res.Error != nil {
		if isDupKey(res.Error) {
			return domain.Conflict("login already exists")
		}
		return domain.Internal("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

func (g *Gorm) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	var row userRow
	err := g.db.WithContext(ctx).First(&row, "login = ?", login).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Internal("find user", err)
	}
	return row.toDomain(), nil
}

func (g *Gorm) List(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := g.db.WithContext(ctx).Order("created_on asc, login asc").Find(&rows).Error; err != nil {
		return nil, domain.Internal("list users", err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (g *Gorm) Remove(ctx context.Context, login string) error {
	res := g.db.WithContext(ctx).Where("login = ?", login).Delete(&userRow{})
	if res.Error != nil {
		return domain.Internal("remove user", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// isDupKey 不依赖 gorm.ErrDuplicatedKey，避免驱动差异
func isDupKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate key")
}
