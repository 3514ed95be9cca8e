package initwfn

import (
	"encoding/json"
	"testing"
)

func TestInitWFnJSON(t *testing.T) {
	init, err := NewGaussian(0, 0.01)
	if err != nil {
		t.Fatalf("newGaussian: %v", err)
	}

	data, err := json.Marshal(init)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded InitWFn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != Gaussian {
		t.Errorf("unmarshal: want type (%v) have (%v)", Gaussian,
			decoded.Type)
	}
	if c, ok := decoded.Config.(GaussianConfig); !ok || c.StdDev != 0.01 {
		t.Errorf("unmarshal: unexpected config %v", decoded.Config)
	}
	if decoded.InitWFn() == nil {
		t.Error("unmarshal: gorgonia InitWFn not created")
	}

	if err := json.Unmarshal([]byte(`{"Type": "HeU"}`), &decoded); err == nil {
		t.Error("unmarshal: expected error for unknown type")
	}
}

func TestInitWFnValidate(t *testing.T) {
	if _, err := NewGlorotU(0); err == nil {
		t.Error("newGlorotU: expected error for zero gain")
	}
	if _, err := NewGlorotN(-1); err == nil {
		t.Error("newGlorotN: expected error for negative gain")
	}
	if _, err := NewGaussian(0, -0.1); err == nil {
		t.Error("newGaussian: expected error for negative stddev")
	}
	if _, err := NewZeroes(); err != nil {
		t.Errorf("newZeroes: %v", err)
	}

	glorot, err := NewGlorotN(2)
	if err != nil {
		t.Fatalf("newGlorotN: %v", err)
	}
	if glorot.Type != GlorotN || glorot.InitWFn() == nil {
		t.Errorf("newGlorotN: unexpected initializer %v", glorot)
	}

	var decoded InitWFn
	bad := `{"Type": "GlorotU", "Config": {"Gain": 0}}`
	if err := json.Unmarshal([]byte(bad), &decoded); err == nil {
		t.Error("unmarshal: expected error for zero gain")
	}
	good := `{"Type": "GlorotU", "Config": {"Gain": 1.5}}`
	if err := json.Unmarshal([]byte(good), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c, ok := decoded.Config.(GlorotUConfig); !ok || c.Gain != 1.5 {
		t.Errorf("unmarshal: unexpected config %v", decoded.Config)
	}
}
