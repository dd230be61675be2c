package manager

import (
	"encoding/json"
	"strings"
)

// Envelope 上行帧：type + 原始 data，由上层按 type 再解析。
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope 解析上行帧，type 缺失视为格式错误。
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	envelope.Type = strings.TrimSpace(envelope.Type)
	if envelope.Type == "" {
		return nil, ErrFrameTypeRequired
	}
	return &envelope, nil
}

// EncodeFrame 序列化下行帧，data=nil 时省略 data 字段。
func EncodeFrame(msgType string, data any) ([]byte, error) {
	envelope := map[string]any{
		"type": msgType,
	}
	if data != nil {
		envelope["data"] = data
	}
	return json.Marshal(envelope)
}
