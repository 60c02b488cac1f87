package config

// Config 聚合 guardctl 及嵌入方服务使用的全部配置段
type Config struct {
	App      AppConfig      `yaml:"app" mapstructure:"app"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Tracing  TracingConfig  `yaml:"tracing" mapstructure:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka" mapstructure:"kafka"`
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
}

// ==================== 基础配置 (所有服务都需要) ====================

// AppConfig 应用基础配置
type AppConfig struct {
	Env    string `yaml:"env" mapstructure:"env"`
	Name   string `yaml:"name" mapstructure:"name"`
	NodeID string `yaml:"node_id" mapstructure:"node_id"`
}

// LogConfig 日志配置
type LogConfig struct {
	Format       string        `yaml:"format" mapstructure:"format"`
	Level        string        `yaml:"level" mapstructure:"level"`
	ReportCaller bool          `yaml:"report_caller" mapstructure:"report_caller"`
	File         LogFileConfig `yaml:"file" mapstructure:"file"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir          string `yaml:"dir" mapstructure:"dir"`
	Filename     string `yaml:"filename" mapstructure:"filename"`
	MaxAgeDays   int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	RotationDays int    `yaml:"rotation_days" mapstructure:"rotation_days"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string   `yaml:"addr" mapstructure:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ==================== 基础设施配置 ====================

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Db       int    `yaml:"db" mapstructure:"db"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers       []string `yaml:"brokers" mapstructure:"brokers"`
	ClientID      string   `yaml:"client_id" mapstructure:"client_id"`
	Username      string   `yaml:"username" mapstructure:"username"`
	Password      string   `yaml:"password" mapstructure:"password"`
	SASLMechanism string   `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	TLSEnabled    bool     `yaml:"tls_enabled" mapstructure:"tls_enabled"`
	RequiredAcks  string   `yaml:"required_acks" mapstructure:"required_acks"` // none | one | all
	MaxAttempts   int      `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// ==================== 错误恢复配置 ====================

// BoundaryConfig 错误边界配置
type BoundaryConfig struct {
	MaxRetries     int      `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay     Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	BlogMaxRetries int      `yaml:"blog_max_retries" mapstructure:"blog_max_retries"`
	BlogRetryDelay Duration `yaml:"blog_retry_delay" mapstructure:"blog_retry_delay"`
	ProbeTimeout   Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	Development    bool     `yaml:"development" mapstructure:"development"` // 页面展示堆栈
}

// NotifyConfig 通知队列配置
type NotifyConfig struct {
	AutoHide     Duration `yaml:"auto_hide" mapstructure:"auto_hide"` // 0 表示不自动隐藏
	SinkTimeout  Duration `yaml:"sink_timeout" mapstructure:"sink_timeout"`
	RedisChannel string   `yaml:"redis_channel" mapstructure:"redis_channel"`
	KafkaTopic   string   `yaml:"kafka_topic" mapstructure:"kafka_topic"`
}

// ==================== 可观测性配置 ====================

// TracingConfig 分布式追踪配置
type TracingConfig struct {
	Exporter     string            `yaml:"exporter" mapstructure:"exporter"`
	Endpoint     string            `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName  string            `yaml:"service_name" mapstructure:"service_name"`
	Insecure     bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
	SampleRatio  float64           `yaml:"sample_ratio" mapstructure:"sample_ratio"`
	ResourceTags map[string]string `yaml:"resource_tags" mapstructure:"resource_tags"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Path      string `yaml:"path" mapstructure:"path"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}
