package config

import "time"

// ApplyDefaults 应用所有配置段默认值
func (c *Config) ApplyDefaults() {
	if c.App.Env == "" {
		c.App.Env = GetEnv()
	}
	if c.App.Name == "" {
		c.App.Name = "guardctl"
	}
	if c.App.NodeID == "" {
		c.App.NodeID = GetNodeID("NODE_ID", "POD_NAME")
	}
	c.Log.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Tracing.ApplyDefaults()
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.App.Name
	}
	c.Metrics.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Boundary.ApplyDefaults()
	c.Notify.ApplyDefaults()
}

// ==================== LogConfig 默认值 ====================

// ApplyDefaults 应用日志配置默认值
func (l *LogConfig) ApplyDefaults() {
	if l.Format == "" {
		l.Format = "json"
	}
	if l.Level == "" {
		l.Level = "info"
	}
	if l.File.Dir == "" {
		l.File.Dir = "./logs"
	}
	if l.File.MaxAgeDays <= 0 {
		l.File.MaxAgeDays = 7
	}
	if l.File.RotationDays <= 0 {
		l.File.RotationDays = 1
	}
}

// ==================== ServerConfig 默认值 ====================

// ApplyDefaults 应用 HTTP 服务配置默认值
func (s *ServerConfig) ApplyDefaults() {
	if s.Addr == "" {
		s.Addr = ":8080"
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = Millis(10 * time.Second)
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = Millis(5 * time.Second)
	}
}

// ==================== MetricsConfig 默认值 ====================

// ApplyDefaults 应用 Metrics 配置默认值
func (m *MetricsConfig) ApplyDefaults() {
	if m.Path == "" {
		m.Path = "/metrics"
	}
	if m.Namespace == "" {
		m.Namespace = "resilience"
	}
}

// ==================== TracingConfig 默认值 ====================

// ApplyDefaults 应用 Tracing 配置默认值
func (t *TracingConfig) ApplyDefaults() {
	if t.Exporter == "" {
		t.Exporter = "stdout"
	}
	if t.SampleRatio <= 0 {
		t.SampleRatio = 1.0
	}
}

// ==================== KafkaConfig 默认值 ====================

// ApplyDefaults 应用 Kafka 配置默认值
func (k *KafkaConfig) ApplyDefaults() {
	if k.RequiredAcks == "" {
		k.RequiredAcks = "all"
	}
	if k.MaxAttempts <= 0 {
		k.MaxAttempts = 3
	}
}

// ==================== BoundaryConfig 默认值 ====================

// ApplyDefaults 应用错误边界默认值，与 boundary 包内置默认值保持一致
func (b *BoundaryConfig) ApplyDefaults() {
	if b.MaxRetries <= 0 {
		b.MaxRetries = 3
	}
	if b.RetryDelay <= 0 {
		b.RetryDelay = Millis(time.Second)
	}
	if b.BlogMaxRetries <= 0 {
		b.BlogMaxRetries = 3
	}
	if b.BlogRetryDelay <= 0 {
		b.BlogRetryDelay = Millis(2 * time.Second)
	}
	if b.ProbeTimeout <= 0 {
		b.ProbeTimeout = Millis(5 * time.Second)
	}
}

// ==================== NotifyConfig 默认值 ====================

// ApplyDefaults 应用通知队列默认值
func (n *NotifyConfig) ApplyDefaults() {
	if n.SinkTimeout <= 0 {
		n.SinkTimeout = Millis(5 * time.Second)
	}
	if n.RedisChannel == "" {
		n.RedisChannel = "resilience:notifications"
	}
	if n.KafkaTopic == "" {
		n.KafkaTopic = "resilience.notifications"
	}
}
