package providers

import (
	"errors"
	"strings"

	"github.com/i474232898/zukan/internal/weather"
)

var (
	errNoConditions        = errors.New("response carried no weather conditions")
	errCoordinatesRequired = errors.New("latitude and longitude are required")
	errUnexpectedPayload   = errors.New("unexpected response payload")
)

// conditionLabels are the Japanese descriptions used when a provider only
// returns a condition code.
var conditionLabels = map[weather.Condition]string{
	weather.ConditionClear:   "晴天",
	weather.ConditionCloudy:  "曇り",
	weather.ConditionRain:    "雨",
	weather.ConditionSnow:    "雪",
	weather.ConditionStorm:   "雷雨",
	weather.ConditionMist:    "霧",
	weather.ConditionUnknown: "不明",
}

func describeCondition(c weather.Condition) string {
	if label, ok := conditionLabels[c]; ok {
		return label
	}
	return conditionLabels[weather.ConditionUnknown]
}

func contains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
