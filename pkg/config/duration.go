package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Duration 支持 YAML/ENV 反序列化，单位为毫秒
// 可以从数字（毫秒数）或字符串（如 "1.5s"）解析
type Duration int64

// Millis 构造毫秒数
func Millis(d time.Duration) Duration {
	return Duration(d / time.Millisecond)
}

// Duration 返回 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// Milliseconds 返回毫秒数
func (d Duration) Milliseconds() int64 {
	return int64(d)
}

var durationType = reflect.TypeOf(Duration(0))

// durationHook 将字符串形式的时长转换为 Duration，数字保持原样交给 mapstructure
func durationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != durationType || from.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return Duration(0), nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			var n int64
			if _, scanErr := fmt.Sscan(s, &n); scanErr == nil {
				return Duration(n), nil
			}
			return nil, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return Millis(d), nil
	}
}
