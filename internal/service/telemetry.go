package service

import (
	"time"

	"skilltrack_backend/internal/model"

	"github.com/tidwall/gjson"
)

// firstSet 返回第一个存在且为真值的键，
// camelCase 为零值时回退到 snake_case
func firstSet(payload gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		v := payload.Get(k)
		if truthy(v) {
			return v
		}
	}
	return gjson.Result{}
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		return v.Raw != "{}" && v.Raw != "[]"
	}
	return false
}

// ParseTelemetry 规范化客户端上报的步骤数据。
// 未知或格式错误的字段取零值，无法解析的时间用 now 代替
func ParseTelemetry(payload []byte, now time.Time) model.TelemetryRecord {
	p := gjson.ParseBytes(payload)

	ts := now
	if raw := firstSet(p, "timestamp"); raw.Exists() {
		if parsed, err := time.Parse(time.RFC3339Nano, raw.String()); err == nil {
			ts = parsed.UTC()
		}
	}

	return model.TelemetryRecord{
		StepNumber:     int(firstSet(p, "stepNumber", "step_number").Int()),
		ExpectedAction: firstSet(p, "expectedAction", "expected_action").String(),
		ActualAction:   firstSet(p, "actualAction", "actual_action").String(),
		Success:        p.Get("success").Bool(),
		Metrics: model.TelemetryMetrics{
			HoldDuration: firstSet(p, "holdDuration", "hold_duration").Float(),
			PeakForce:    firstSet(p, "peakForce", "peak_force").Float(),
			Distance:     p.Get("distance").Float(),
			AssistUsed:   firstSet(p, "assistUsed", "assist_used").Bool(),
		},
		Timestamp: ts,
	}
}
