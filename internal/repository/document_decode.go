package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"skilltrack_backend/internal/model"
	"skilltrack_backend/pkg/logger"

	"go.uber.org/zap"
)

// timeKeys 文档中解码为 time.Time 的字段
var timeKeys = map[string]bool{
	"timestamp":    true,
	"start_time":   true,
	"end_time":     true,
	"created_at":   true,
	"updated_at":   true,
	"last_attempt": true,
}

// 旧版本写入的不带时区的时间字符串，按 UTC 读取
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ValidateDocument 与 DecodeDocument 的失败条件完全一致
func ValidateDocument(raw []byte) error {
	_, err := DecodeDocument(raw)
	return err
}

// DecodeDocument 校验文档结构并解码。非 RFC 3339 的时间宽松解析，
// 完全无法解析的时间按零值处理，不会导致整个文档失效
func DecodeDocument(raw []byte) (*model.Document, error) {
	if err := checkShape(raw); err != nil {
		return nil, err
	}

	var doc model.Document
	err := json.Unmarshal(raw, &doc)
	if err != nil {
		fixed, rewritten, nerr := normalizeTimestamps(raw)
		if nerr != nil || rewritten == 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		doc = model.Document{}
		if err := json.Unmarshal(fixed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		logger.Log.Debug("Read legacy timestamps in progress document", zap.Int("rewritten", rewritten))
	}
	doc.Normalize()
	return &doc, nil
}

// normalizeTimestamps 改写 time.Time 无法解码的时间字段，返回改写数量
func normalizeTimestamps(raw []byte) ([]byte, int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, 0, err
	}

	rewritten := 0
	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			for k, child := range node {
				if k == "sessions" {
					continue
				}
				if timeKeys[k] {
					if fixed, changed := normalizeTime(child); changed {
						node[k] = fixed
						rewritten++
					}
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range node {
				walk(child)
			}
		}
	}
	walk(tree)

	if rewritten == 0 {
		return raw, 0, nil
	}
	out, err := json.Marshal(tree)
	return out, rewritten, err
}

func normalizeTime(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	s, ok := v.(string)
	if !ok {
		return nil, true
	}
	var t time.Time
	if err := t.UnmarshalText([]byte(s)); err == nil {
		return s, false
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339Nano), true
		}
	}
	return nil, true
}
