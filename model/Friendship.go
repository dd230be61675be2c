package model

import (
	"time"
)

// Friendship 单向好友关系行，一段关系总是成对存在：(A,B) 与 (B,A) 同时创建、同时修改、同时删除。
// - Accepted：本侧是否已同意。发起方创建时即为 true，接收方为 false；
// - AreFriends：双方均确认后为 true；
// - BecameFriendsAt：进入好友状态的时间，两行取同一时间戳；
// - FriendFirstName/FriendLastName：对端资料的冗余快照，资料变更广播时刷新；
// - Version：乐观锁版本号，接受/删除时做 CAS，防止并发请求互相覆盖。
// 不做软删除：删除后允许重新发起申请，唯一索引不能被残留行占用。
type Friendship struct {
	Id              int64      `gorm:"column:id;primaryKey;autoIncrement;comment:自增id" json:"-"`
	UserName        string     `gorm:"column:user_name;type:varchar(64);not null;uniqueIndex:uidx_user_friend;index:idx_user_are_friends,priority:1;comment:本侧用户名" json:"userName"`
	FriendUserName  string     `gorm:"column:friend_user_name;type:varchar(64);not null;uniqueIndex:uidx_user_friend;index;comment:对端用户名" json:"friendUserName"`
	Accepted        bool       `gorm:"column:accepted;not null;comment:本侧是否已同意" json:"accepted"`
	AreFriends      bool       `gorm:"column:are_friends;not null;index:idx_user_are_friends,priority:2;comment:是否互为好友" json:"areFriends"`
	BecameFriendsAt *time.Time `gorm:"column:became_friends_at;comment:成为好友时间" json:"becameFriendsDate,omitempty"`
	FriendFirstName string     `gorm:"column:friend_first_name;type:varchar(64);comment:对端名（冗余）" json:"friendFirstName"`
	FriendLastName  string     `gorm:"column:friend_last_name;type:varchar(64);comment:对端姓（冗余）" json:"friendLastName"`
	Version         int64      `gorm:"column:version;not null;default:1;comment:乐观锁版本" json:"-"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime" json:"-"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"-"`
}

func (Friendship) TableName() string { return "friendship" }

// IsCounterpartOf 判断两行是否构成同一段关系的两侧。
func (f *Friendship) IsCounterpartOf(other *Friendship) bool {
	if f == nil || other == nil {
		return false
	}
	return f.UserName == other.FriendUserName &&
		f.FriendUserName == other.UserName &&
		f.UserName != f.FriendUserName
}

// IsPending 关系已存在但尚未互为好友。
func (f *Friendship) IsPending() bool {
	return !f.AreFriends
}

// IsOutgoing 本侧是发起方（已预先同意，等待对端确认）。
func (f *Friendship) IsOutgoing() bool {
	return f.Accepted && !f.AreFriends
}
