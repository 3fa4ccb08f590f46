package vpc

import (
	"encoding/json"
	"strings"
	"testing"
)

// A band bound clamped to exactly 0 is a real value and must survive
// serialization; renderers read the bounds positionally per point.
func TestCurvePoint_ZeroBoundsSerialized(t *testing.T) {
	p := CurvePoint{Time: 1, Value: 0.1, Lower: 0, Upper: 0.3}
	payload, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"lower":0`, `"upper":0.3`} {
		if !strings.Contains(string(payload), field) {
			t.Errorf("serialized point %s is missing %s", payload, field)
		}
	}
}

// Omitting coerce_dv in a JSON config must be distinguishable from
// explicitly disabling it.
func TestConfig_CoerceDVOmittedVsDisabled(t *testing.T) {
	var omitted Config
	if err := json.Unmarshal([]byte(`{"bin_policy":"none"}`), &omitted); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if omitted.CoerceDV != nil {
		t.Errorf("omitted coerce_dv decoded as %v, want nil", *omitted.CoerceDV)
	}

	var disabled Config
	if err := json.Unmarshal([]byte(`{"coerce_dv":false}`), &disabled); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if disabled.CoerceDV == nil || *disabled.CoerceDV {
		t.Errorf("explicit coerce_dv=false decoded as %v, want false", disabled.CoerceDV)
	}

	if def := DefaultConfig(); def.CoerceDV == nil || !*def.CoerceDV {
		t.Error("default configuration must enable coercion")
	}
}

func TestInterval_Symmetric(t *testing.T) {
	if !(Interval{Lower: 0.05, Upper: 0.95}).Symmetric() {
		t.Error("(0.05, 0.95) is symmetric around 0.5")
	}
	if (Interval{Lower: 0.1, Upper: 0.95}).Symmetric() {
		t.Error("(0.1, 0.95) is not symmetric around 0.5")
	}
}
