package emotion

// Valence-Arousal math. Pure computation, no LLM involvement.

// Chinese display labels for the VA quadrants.
const (
	LabelJoy        = "愉悦"
	LabelAnger      = "愤怒"
	LabelSadness    = "悲伤"
	LabelRelaxation = "放松"
	LabelExcited    = "兴奋"
	LabelAnxious    = "焦虑"
	LabelBored      = "无聊"
	LabelCalm       = "平静"
	LabelNeutral    = "中性"
)

// Clamp limits a VA component to [-1.0, 1.0].
func Clamp(value float32) float32 {
	if value < -1.0 {
		return -1.0
	}
	if value > 1.0 {
		return 1.0
	}
	return value
}

// Update applies a delta to the current state, clamping both components.
func Update(valence, arousal, deltaV, deltaA float32) (float32, float32) {
	return Clamp(valence + deltaV), Clamp(arousal + deltaA)
}

type labelRule struct {
	minV, maxV *float32
	minA, maxA *float32
	label      string
}

func f(v float32) *float32 { return &v }

// Checked in priority order: the four extreme states (|arousal| >= 0.5)
// before the four base quadrants (|component| >= 0.3).
var labelRules = []labelRule{
	{minV: f(0.3), minA: f(0.5), label: LabelExcited},
	{maxV: f(-0.3), minA: f(0.5), label: LabelAnxious},
	{maxV: f(-0.3), maxA: f(-0.5), label: LabelBored},
	{minV: f(0.3), maxA: f(-0.5), label: LabelCalm},
	{minV: f(0.3), minA: f(0.3), label: LabelJoy},
	{maxV: f(-0.3), minA: f(0.3), label: LabelAnger},
	{maxV: f(-0.3), maxA: f(-0.3), label: LabelSadness},
	{minV: f(0.3), maxA: f(-0.3), label: LabelRelaxation},
}

// StateLabel maps a VA point to its display label, 中性 when no rule matches.
func StateLabel(valence, arousal float32) string {
	for _, rule := range labelRules {
		if rule.minV != nil && valence < *rule.minV {
			continue
		}
		if rule.maxV != nil && valence > *rule.maxV {
			continue
		}
		if rule.minA != nil && arousal < *rule.minA {
			continue
		}
		if rule.maxA != nil && arousal > *rule.maxA {
			continue
		}
		return rule.label
	}
	return LabelNeutral
}
