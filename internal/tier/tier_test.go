package tier

import "testing"

func TestClassify(t *testing.T) {
	th := Thresholds{Warm: 60, Hot: 80, Critical: 90}
	tests := []struct {
		temp float64
		want Tier
	}{
		{40, Cool},
		{59.9, Cool},
		{60, Warm},
		{65, Warm},
		{80, Hot},
		{85, Hot},
		{90, Critical},
		{95, Critical},
		{-10, Cool},
	}
	for _, tt := range tests {
		got := Classify(tt.temp, th)
		if got != tt.want {
			t.Errorf("Classify(%.1f) = %s, want %s", tt.temp, got, tt.want)
		}
		if again := Classify(tt.temp, th); again != got {
			t.Errorf("Classify(%.1f) not stable: %s then %s", tt.temp, got, again)
		}
	}
}

func TestClassifyInvertedThresholds(t *testing.T) {
	// Inverted ordering still yields a tier; the highest satisfied bound wins.
	th := Thresholds{Warm: 90, Hot: 80, Critical: 60}
	if got := Classify(70, th); got != Critical {
		t.Errorf("Classify(70) = %s, want Critical", got)
	}
	if err := th.Validate(); err == nil {
		t.Error("expected Validate to reject inverted thresholds")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestParseTier(t *testing.T) {
	for _, want := range []Tier{Cool, Warm, Hot, Critical} {
		got, err := ParseTier(want.String())
		if err != nil || got != want {
			t.Errorf("ParseTier(%q) = %s, %v", want.String(), got, err)
		}
	}
	if _, err := ParseTier("lukewarm"); err == nil {
		t.Error("expected error for unknown tier")
	}
	if got := Tier(9).String(); got != "Tier(9)" {
		t.Errorf("Tier(9).String() = %q", got)
	}
}
