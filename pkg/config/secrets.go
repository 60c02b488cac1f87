package config

import (
	"os"
	"strings"
)

// GetSecretOrEnv 从 Docker Secret 文件或环境变量读取敏感信息
// 优先级: {NAME}_FILE 指定的文件 > {NAME} 环境变量 > 默认值
//
// 示例:
//
//	password := GetSecretOrEnv("REDIS_PASSWORD", "")
//	// 如果 REDIS_PASSWORD_FILE=/run/secrets/redis-password 存在，读取文件内容
//	// 否则读取 REDIS_PASSWORD 环境变量
func GetSecretOrEnv(name string, defaultValue string) string {
	filePath := os.Getenv(name + "_FILE")
	if filePath != "" {
		if data, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	if value := os.Getenv(name); value != "" {
		return value
	}

	return defaultValue
}

// MustGetSecret 从 Docker Secret 文件或环境变量读取敏感信息
// 如果找不到则 panic
func MustGetSecret(name string) string {
	value := GetSecretOrEnv(name, "")
	if value == "" {
		panic("required secret not found: " + name)
	}
	return value
}

// LoadConfigWithSecrets 加载配置并注入 Secrets
// Secret 未设置时保留配置文件中的值，其次使用 Default
//
// 示例:
//
//	cfg := &Config{}
//	secretDefs := []SecretDefinition{
//	    {Name: "REDIS_PASSWORD", Target: &cfg.Redis.Password},
//	    {Name: "KAFKA_PASSWORD", Target: &cfg.Kafka.Password, Required: true},
//	}
//	if err := LoadConfigWithSecrets(cfg, secretDefs); err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigWithSecrets(cfg interface{}, secrets []SecretDefinition, opts ...LoadOptions) error {
	// 先加载 YAML 配置
	if err := LoadConfig(cfg, opts...); err != nil {
		return err
	}
	return applySecrets(secrets)
}

func applySecrets(secrets []SecretDefinition) error {
	for _, s := range secrets {
		fallback := s.Default
		if s.Target != nil && *s.Target != "" {
			fallback = *s.Target
		}
		value := GetSecretOrEnv(s.Name, fallback)
		if s.Required && value == "" {
			return &SecretNotFoundError{Name: s.Name}
		}
		if s.Target != nil {
			*s.Target = value
		}
	}
	return nil
}

// SecretDefinition Secret 定义
type SecretDefinition struct {
	Name     string  // Secret 名称 (如 REDIS_PASSWORD)
	Target   *string // 目标字段指针
	Default  string  // 默认值
	Required bool    // 是否必需
}

// SecretNotFoundError Secret 未找到错误
type SecretNotFoundError struct {
	Name string
}

func (e *SecretNotFoundError) Error() string {
	return "required secret not found: " + e.Name
}
