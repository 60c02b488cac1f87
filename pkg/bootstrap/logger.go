package bootstrap

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"

	"github.com/Goden-Gun/resilience-lib/pkg/config"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
)

// LoggerOptions 日志初始化选项
type LoggerOptions struct {
	// ServiceName 服务名称，用于日志文件命名和 service 字段
	ServiceName string
	// Console 控制台输出，nil 则为 os.Stdout
	Console io.Writer
	// AddContainerHook 是否添加容器ID钩子，默认在文件输出开启时添加
	AddContainerHook bool
}

// containerHook 添加容器ID到日志
type containerHook struct {
	containerID string
}

func (h *containerHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *containerHook) Fire(entry *log.Entry) error {
	entry.Data["container_id"] = h.containerID
	return nil
}

// detectContainerID 检测容器ID
func detectContainerID() string {
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}

	if data, err := os.ReadFile("/etc/hostname"); err == nil {
		hostname := strings.TrimSpace(string(data))
		if hostname != "" {
			return hostname
		}
	}

	return "unknown"
}

// InitLogger 初始化标准日志，返回带 service 字段的 Logger 供边界和通知中心使用
func InitLogger(cfg config.LogConfig, serviceName string) (logger.Logger, error) {
	return InitLoggerWithOptions(cfg, LoggerOptions{
		ServiceName:      serviceName,
		AddContainerHook: cfg.File.Enabled,
	})
}

// InitLoggerWithOptions 使用完整选项初始化日志
func InitLoggerWithOptions(cfg config.LogConfig, opts LoggerOptions) (logger.Logger, error) {
	// 设置日志格式
	switch cfg.Format {
	case "text":
		log.SetFormatter(&log.TextFormatter{})
	default:
		log.SetFormatter(&log.JSONFormatter{})
	}

	// 设置日志级别
	if lvl, err := log.ParseLevel(cfg.Level); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(log.InfoLevel)
		log.Warnf("invalid log level %q, fallback to info", cfg.Level)
	}

	// 设置打印调用信息
	log.SetReportCaller(cfg.ReportCaller)

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	log.SetOutput(console)

	// 设置文件输出
	if cfg.File.Enabled {
		writer, err := newRotateWriter(cfg.File, opts.ServiceName)
		if err != nil {
			return nil, err
		}
		log.SetOutput(io.MultiWriter(console, writer))
	}

	// 添加容器钩子
	if opts.AddContainerHook {
		log.AddHook(&containerHook{containerID: detectContainerID()})
	}

	entry := log.NewEntry(log.StandardLogger())
	if opts.ServiceName != "" {
		entry = entry.WithField("service", opts.ServiceName)
	}
	return logger.Safe(logger.FromEntry(entry)), nil
}

// newRotateWriter 创建按天切割的日志文件输出
func newRotateWriter(fileCfg config.LogFileConfig, serviceName string) (io.Writer, error) {
	logDir := fileCfg.Dir
	if logDir == "" {
		logDir = "./logs"
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.Errorf("创建日志目录失败: %v", err)
		return nil, err
	}

	filename := fileCfg.Filename
	if filename == "" {
		filename = serviceName
	}
	if filename == "" {
		filename = "app"
	}

	maxAge := max(fileCfg.MaxAgeDays, 1)
	rotationDays := max(fileCfg.RotationDays, 1)

	writer, err := rotatelogs.New(
		filepath.Join(logDir, filename+".%Y%m%d.log"),
		rotatelogs.WithLinkName(filepath.Join(logDir, filename+".log")),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(rotationDays)*24*time.Hour),
	)
	if err != nil {
		log.Errorf("设置日志输出失败: %v", err)
		return nil, err
	}
	return writer, nil
}
