package detector

import (
	"math"
	"testing"

	"amdscan/pkg/model"
)

func TestComputeTargetsFixed(t *testing.T) {
	cfg := TargetConfig{
		Method:    model.TargetFixed,
		TPPercent: 0.3,
		SLPercent: 0.4,
	}

	sl, tp := ComputeTargets(cfg, model.DirectionLong, 2000.0, 0)
	if sl != 1992.0 {
		t.Errorf("Expected long stop-loss 1992.0, got %v", sl)
	}
	if tp != 2006.0 {
		t.Errorf("Expected long take-profit 2006.0, got %v", tp)
	}

	sl, tp = ComputeTargets(cfg, model.DirectionShort, 2000.0, 0)
	if sl != 2008.0 {
		t.Errorf("Expected short stop-loss 2008.0, got %v", sl)
	}
	if tp != 1994.0 {
		t.Errorf("Expected short take-profit 1994.0, got %v", tp)
	}
}

func TestComputeTargetsDynamic(t *testing.T) {
	cfg := TargetConfig{
		Method:             model.TargetDynamic,
		RiskTier:           model.RiskCustom,
		CustomSLMultiplier: 5.0,
		RiskReward:         0.86,
	}

	sl, tp := ComputeTargets(cfg, model.DirectionShort, 2000.0, 10.0)
	if sl != 2050.0 {
		t.Errorf("Expected short stop-loss 2050.0, got %v", sl)
	}
	if math.Abs(tp-1957.0) > 1e-9 {
		t.Errorf("Expected short take-profit 1957.0, got %v", tp)
	}

	sl, tp = ComputeTargets(cfg, model.DirectionLong, 2000.0, 10.0)
	if sl != 1950.0 {
		t.Errorf("Expected long stop-loss 1950.0, got %v", sl)
	}
	if math.Abs(tp-2043.0) > 1e-9 {
		t.Errorf("Expected long take-profit 2043.0, got %v", tp)
	}
}

func TestSLMultiplierTiers(t *testing.T) {
	tests := []struct {
		tier     model.RiskTier
		custom   float64
		expected float64
	}{
		{model.RiskHighest, 0, 8.0},
		{model.RiskHigh, 0, 6.5},
		{model.RiskNormal, 0, 5.0},
		{model.RiskLow, 0, 3.5},
		{model.RiskLowest, 0, 2.0},
		{model.RiskCustom, 4.2, 4.2},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			cfg := TargetConfig{RiskTier: tt.tier, CustomSLMultiplier: tt.custom}
			if got := cfg.SLMultiplier(); got != tt.expected {
				t.Errorf("Expected multiplier %v for tier %s, got %v", tt.expected, tt.tier, got)
			}
		})
	}
}

func TestTargetConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TargetConfig
		wantErr bool
	}{
		{
			name:    "valid fixed",
			cfg:     TargetConfig{Method: model.TargetFixed, TPPercent: 0.3, SLPercent: 0.4},
			wantErr: false,
		},
		{
			name:    "fixed without tp",
			cfg:     TargetConfig{Method: model.TargetFixed, SLPercent: 0.4},
			wantErr: true,
		},
		{
			name:    "valid dynamic",
			cfg:     TargetConfig{Method: model.TargetDynamic, RiskTier: model.RiskNormal, RiskReward: 0.86},
			wantErr: false,
		},
		{
			name:    "dynamic with zero rr",
			cfg:     TargetConfig{Method: model.TargetDynamic, RiskTier: model.RiskNormal},
			wantErr: true,
		},
		{
			name:    "dynamic custom without multiplier",
			cfg:     TargetConfig{Method: model.TargetDynamic, RiskTier: model.RiskCustom, RiskReward: 2.0},
			wantErr: true,
		},
		{
			name:    "unknown method",
			cfg:     TargetConfig{Method: "Magic"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
