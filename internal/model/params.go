package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidParams 对话参数不合法
var ErrInvalidParams = errors.New("invalid conversation params")

// 已知参数名
const (
	ParamModel            = "model"
	ParamMaxTokens        = "max_tokens"
	ParamTemperature      = "temperature"
	ParamTopP             = "top_p"
	ParamFrequencyPenalty = "frequency_penalty"
)

// Params 对话参数，值为字符串或数字，原样存储
type Params map[string]any

// ChatOptions 解析后的模型参数
type ChatOptions struct {
	Model            string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
}

// DefaultChatOptions 未配置时的默认值
var DefaultChatOptions = ChatOptions{
	Model:            "gpt-3.5-turbo",
	MaxTokens:        100,
	Temperature:      0.7,
	TopP:             1.0,
	FrequencyPenalty: 0.0,
}

// Validate 校验参数类型与取值范围
func (p Params) Validate() error {
	_, err := p.Resolve(DefaultChatOptions)
	return err
}

// Resolve 以 defaults 为基础解析参数
func (p Params) Resolve(defaults ChatOptions) (ChatOptions, error) {
	opts := defaults

	for key, raw := range p {
		switch raw.(type) {
		case string, float64, float32, int, int32, int64, json.Number:
		default:
			return opts, fmt.Errorf("%w: %s must be a string or number", ErrInvalidParams, key)
		}

		switch key {
		case ParamModel:
			s, ok := raw.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return opts, fmt.Errorf("%w: model must be a non-empty string", ErrInvalidParams)
			}
			opts.Model = s
		case ParamMaxTokens:
			f, err := toFloat(raw)
			if err != nil || f <= 0 || f != math.Trunc(f) {
				return opts, fmt.Errorf("%w: max_tokens must be a positive integer", ErrInvalidParams)
			}
			opts.MaxTokens = int(f)
		case ParamTemperature:
			f, err := rangedFloat(raw, 0, 2)
			if err != nil {
				return opts, fmt.Errorf("%w: temperature %v", ErrInvalidParams, err)
			}
			opts.Temperature = f
		case ParamTopP:
			f, err := rangedFloat(raw, 0, 1)
			if err != nil {
				return opts, fmt.Errorf("%w: top_p %v", ErrInvalidParams, err)
			}
			opts.TopP = f
		case ParamFrequencyPenalty:
			f, err := rangedFloat(raw, -2, 2)
			if err != nil {
				return opts, fmt.Errorf("%w: frequency_penalty %v", ErrInvalidParams, err)
			}
			opts.FrequencyPenalty = f
		}
	}

	return opts, nil
}

func rangedFloat(raw any, lo, hi float64) (float64, error) {
	f, err := toFloat(raw)
	if err != nil {
		return 0, err
	}
	if f < lo || f > hi {
		return 0, fmt.Errorf("must be within [%g, %g]", lo, hi)
	}
	return f, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("is not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("has unsupported type %T", raw)
}
