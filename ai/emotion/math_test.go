package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1.0), Clamp(1.7))
	assert.Equal(t, float32(-1.0), Clamp(-2.3))
	assert.Equal(t, float32(0.25), Clamp(0.25))
}

func TestUpdateClampsBothComponents(t *testing.T) {
	tests := []struct {
		name         string
		v, a, dv, da float32
		wantV, wantA float32
	}{
		{"plain addition", 0.1, -0.2, 0.2, 0.1, 0.3, -0.1},
		{"upper saturation", 0.9, 0.9, 0.5, 0.5, 1.0, 1.0},
		{"lower saturation", -0.9, -0.9, -0.5, -0.5, -1.0, -1.0},
		{"zero delta keeps state", 0.4, -0.4, 0, 0, 0.4, -0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, a := Update(tt.v, tt.a, tt.dv, tt.da)
			assert.InDelta(t, tt.wantV, v, 1e-6)
			assert.InDelta(t, tt.wantA, a, 1e-6)
			assert.GreaterOrEqual(t, v, float32(-1))
			assert.LessOrEqual(t, v, float32(1))
			assert.GreaterOrEqual(t, a, float32(-1))
			assert.LessOrEqual(t, a, float32(1))
		})
	}
}

func TestStateLabel(t *testing.T) {
	tests := []struct {
		name string
		v, a float32
		want string
	}{
		{"origin is neutral", 0, 0, LabelNeutral},
		{"joy quadrant", 0.4, 0.4, LabelJoy},
		{"anger quadrant", -0.4, 0.4, LabelAnger},
		{"sadness quadrant", -0.4, -0.4, LabelSadness},
		{"relaxation quadrant", 0.4, -0.4, LabelRelaxation},
		{"excited beats joy at high arousal", 0.4, 0.6, LabelExcited},
		{"anxious beats anger at high arousal", -0.4, 0.6, LabelAnxious},
		{"bored beats sadness at low arousal", -0.4, -0.6, LabelBored},
		{"calm beats relaxation at low arousal", 0.4, -0.6, LabelCalm},
		{"below threshold stays neutral", 0.2, 0.2, LabelNeutral},
		{"positive valence alone is neutral", 0.9, 0, LabelNeutral},
		{"boundary joy", 0.3, 0.3, LabelJoy},
		{"boundary excited", 0.3, 0.5, LabelExcited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateLabel(tt.v, tt.a))
		})
	}
}

// Three consecutive negative turns drive a neutral state into the
// anger region without ever leaving the legal VA range.
func TestNegativeDriftReachesAnger(t *testing.T) {
	var v, a float32
	for i := 0; i < 3; i++ {
		v, a = Update(v, a, -0.2, 0.15)
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, a, float32(1))
	}
	assert.Equal(t, LabelAnger, StateLabel(v, a))
}
