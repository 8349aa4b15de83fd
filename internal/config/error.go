package config

import (
	"fmt"
	"strings"
)

// ConfigError 汇总所有配置错误，启动时一次性报告
type ConfigError struct {
	EnvFile string   // 已加载的 env 文件，空表示只读取了进程环境
	Missing []string // 缺失的环境变量
	Errors  []string // 取值错误
}

// integrations 环境变量前缀对应的外部服务
var integrations = []struct {
	prefix string
	name   string
}{
	{"SESSION_", "session"},
	{"TMDB_", "tmdb"},
	{"NZB_", "nzb index"},
	{"SABNZBD_", "sabnzbd"},
	{"S3_", "storage"},
}

func integrationOf(key string) string {
	for _, i := range integrations {
		if strings.HasPrefix(key, i.prefix) {
			return i.name
		}
	}
	return "other"
}

// MissingByIntegration 按外部服务分组缺失的变量，保持出现顺序
func (e *ConfigError) MissingByIntegration() ([]string, map[string][]string) {
	var order []string
	groups := make(map[string][]string)
	for _, key := range e.Missing {
		name := integrationOf(key)
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], key)
	}
	return order, groups
}

func (e *ConfigError) Error() string {
	if !e.HasErrors() {
		return ""
	}

	source := "process environment"
	if e.EnvFile != "" {
		source = e.EnvFile + " and process environment"
	}
	parts := []string{fmt.Sprintf("configuration incomplete (read from %s):", source)}

	order, groups := e.MissingByIntegration()
	for _, name := range order {
		parts = append(parts, fmt.Sprintf("  %s: missing %s", name, strings.Join(groups[name], ", ")))
	}
	for _, err := range e.Errors {
		parts = append(parts, "  invalid: "+err)
	}

	return strings.Join(parts, "\n")
}

// HasErrors 是否存在错误
func (e *ConfigError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Errors) > 0
}
