package model

import "time"

// Message 好友间的聊天消息，ID 由 snowflake 生成。
type Message struct {
	Id        int64     `gorm:"column:id;primaryKey;autoIncrement:false;comment:snowflake id" json:"id,string"`
	Author    string    `gorm:"column:author;type:varchar(64);not null;index;comment:发送方" json:"author"`
	Recipient string    `gorm:"column:recipient;type:varchar(64);not null;index;comment:接收方" json:"recipient"`
	Data      string    `gorm:"column:data;type:text;comment:消息内容" json:"data"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Message) TableName() string { return "message" }
