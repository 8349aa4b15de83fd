package logger

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Init 初始化全局日志：生产环境输出 JSON，终端下输出带颜色的文本
func Init(env, level string) {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	if env != "production" && isatty.IsTerminal(os.Stdout.Fd()) {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	logger = l
}

// Get 获取全局日志实例
func Get() *logrus.Logger {
	once.Do(func() {
		if logger == nil {
			Init("development", "info")
		}
	})
	return logger
}

// Component 带 component 字段的子日志
func Component(name string) *logrus.Entry {
	return Get().WithField("component", name)
}
