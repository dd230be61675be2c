package model

import "time"

// EventKind 推送事件类型，同时作为下行帧的 type 字段。
type EventKind string

const (
	EventProfileUpdated    EventKind = "profile_updated"
	EventFriendshipUpdated EventKind = "friendship_updated"
	EventFriendshipRemoved EventKind = "friendship_removed"
	EventMessagePosted     EventKind = "message_posted"
)

// Event 一次推送的内容，不落库。
type Event struct {
	Kind    EventKind
	Payload any
}

// NotificationEvent 带目标身份的推送事件，只在一次 relay 调用内存在。
type NotificationEvent struct {
	TargetIdentity string
	Event
}

// FriendshipRemovedPayload 关系删除事件载荷：被移除的对端用户名。
type FriendshipRemovedPayload struct {
	UserName string `json:"userName"`
}

func NewProfileUpdated(p *Profile) Event {
	return Event{Kind: EventProfileUpdated, Payload: p}
}

func NewFriendshipUpdated(f *Friendship) Event {
	return Event{Kind: EventFriendshipUpdated, Payload: f}
}

func NewFriendshipRemoved(userName string) Event {
	return Event{Kind: EventFriendshipRemoved, Payload: FriendshipRemovedPayload{UserName: userName}}
}

func NewMessagePosted(m *Message) Event {
	return Event{Kind: EventMessagePosted, Payload: m}
}

// ConnectionEntry 在线连接条目，仅存在于注册表，不跨进程重启保留。
type ConnectionEntry struct {
	Identity     string    `json:"identity"`
	ConnectionID string    `json:"connectionId"`
	ConnectedAt  time.Time `json:"connectedAt"`
}
