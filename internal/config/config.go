// Package config 实现 angel.toml 设置文件的加载
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// 常量定义
const (
	ConfigFileName = "angel.toml" // 配置文件名
)

// Config 语言服务配置
type Config struct {
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
}

// EngineConfig 脚本引擎相关配置
type EngineConfig struct {
	// ArrayType T[] 语法改写成的内建数组类型名
	ArrayType string `toml:"array_type"`
}

// ServerConfig 语言服务器相关配置
type ServerConfig struct {
	// LogFile 日志文件路径；为空则不写日志文件
	LogFile string `toml:"log_file"`

	// SemanticHighlighting 是否启用语义高亮
	SemanticHighlighting bool `toml:"semantic_highlighting"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Engine: EngineConfig{ArrayType: "array"},
		Server: ServerConfig{SemanticHighlighting: true},
	}
}

// Load 从文件加载配置；缺省字段回落到默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Find 从指定路径向上查找配置文件
//
// 返回配置文件的完整路径，找不到返回空字符串。
func Find(startPath string) string {
	info, err := os.Stat(startPath)
	if err != nil {
		return ""
	}

	dir := startPath
	if !info.IsDir() {
		dir = filepath.Dir(startPath)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadNear 加载离 startPath 最近的配置；找不到时返回默认配置
func LoadNear(startPath string) *Config {
	path := Find(startPath)
	if path == "" {
		return Default()
	}
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}
