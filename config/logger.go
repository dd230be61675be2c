package config

// LoggerConfig zap 日志配置。
type LoggerConfig struct {
	Level            string   `mapstructure:"level"`              // debug/info/warn/error
	Encoding         string   `mapstructure:"encoding"`           // json/console
	EnableColor      bool     `mapstructure:"enable_color"`       // console 模式下是否彩色输出
	Development      bool     `mapstructure:"development"`        // 开发模式（error 级别附带堆栈）
	OutputPaths      []string `mapstructure:"output_paths"`       // 普通日志输出
	ErrorOutputPaths []string `mapstructure:"error_output_paths"` // zap 内部错误输出
}

// DefaultLoggerConfig 返回默认日志配置（JSON 输出到 stdout）。
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:            "info",
		Encoding:         "json",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}
