package domain

import (
	"context"
	"time"
)

type Gender int

// 性别编码：0-女 1-男 2-未知
const (
	GenderFemale  Gender = 0
	GenderMale    Gender = 1
	GenderUnknown Gender = 2
)

func (g Gender) Valid() bool { return g >= GenderFemale && g <= GenderUnknown }

type User struct {
	GUID         string     `json:"guid"`
	Login        string     `json:"login"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Gender       Gender     `json:"gender"`
	Birthday     *time.Time `json:"birthday,omitempty"`
	Admin        bool       `json:"admin"`
	CreatedOn    time.Time  `json:"createdOn"`
	CreatedBy    string     `json:"createdBy"`
	ModifiedOn   time.Time  `json:"modifiedOn"`
	ModifiedBy   string     `json:"modifiedBy"`
	RevokedOn    *time.Time `json:"revokedOn,omitempty"`
	RevokedBy    string     `json:"revokedBy,omitempty"`
}

// IsActive 未被撤销即有效
func (u *User) IsActive() bool { return u.RevokedOn == nil }

// Principal 当前请求的操作者（JWT sub + isAdmin）
type Principal struct {
	Login string
	Admin bool
}

// UserStore 用户存储契约。FindByLogin 未命中返回 (nil, nil)；
// Add/Update 需在单次调用内保证 login 唯一性检查与写入的原子性
type UserStore interface {
	Add(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	FindByLogin(ctx context.Context, login string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Remove(ctx context.Context, login string) error
}
