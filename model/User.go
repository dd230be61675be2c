package model

import "time"

// User 用户资料行。凭证与登录不在本服务内，这里只维护展示资料与在线状态。
type User struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement;comment:自增id"`
	UserName  string    `gorm:"column:user_name;type:varchar(64);not null;uniqueIndex;comment:用户名"`
	FirstName string    `gorm:"column:first_name;type:varchar(64);comment:名"`
	LastName  string    `gorm:"column:last_name;type:varchar(64);comment:姓"`
	Status    string    `gorm:"column:status;type:varchar(256);comment:个性状态"`
	Online    bool      `gorm:"column:online;not null;comment:是否在线"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "user_profile" }

// Profile 对外暴露的资料快照，也是 ProfileUpdated 推送的载荷。
type Profile struct {
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    string `json:"status"`
	Online    bool   `json:"online"`
}

func (u *User) ToProfile() *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Status:    u.Status,
		Online:    u.Online,
	}
}

// ProfilePatch 资料局部更新，nil 字段保持不变。
type ProfilePatch struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Status    *string `json:"status"`
}

func (p ProfilePatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Status == nil
}

// Columns 转换为 gorm Updates 使用的列映射。
func (p ProfilePatch) Columns() map[string]any {
	cols := make(map[string]any, 3)
	if p.FirstName != nil {
		cols["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		cols["last_name"] = *p.LastName
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	return cols
}
