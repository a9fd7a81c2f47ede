package geometry

import "testing"

func TestBaseGainLinear(t *testing.T) {
	cases := []struct {
		name string
		d    float32
		roll float32
		want float32
	}{
		{"at listener", 0, 500, 1},
		{"at boundary", 500, 500, 0},
		{"beyond boundary", 1000, 500, 0},
		{"midway", 250, 500, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := BaseGain(AttenuationLinear, c.roll, c.d)
			if got != c.want {
				t.Errorf("BaseGain(Linear, %v, %v) = %v, want %v", c.roll, c.d, got, c.want)
			}
		})
	}
}

func TestBaseGainLinearMonotonic(t *testing.T) {
	prev := float32(2)
	for d := float32(0); d <= 600; d += 10 {
		g := BaseGain(AttenuationLinear, 500, d)
		if g > prev {
			t.Fatalf("linear attenuation increased with distance at d=%v: prev=%v got=%v", d, prev, g)
		}
		prev = g
	}
}

func TestBaseGainInverseRolloff(t *testing.T) {
	if g := BaseGain(AttenuationInverseRolloff, 0.03, 0); g != 1 {
		t.Errorf("d=0 should always be full gain, got %v", g)
	}
	g1 := BaseGain(AttenuationInverseRolloff, 0.03, 10)
	g2 := BaseGain(AttenuationInverseRolloff, 0.03, 100)
	if g2 >= g1 {
		t.Errorf("inverse rolloff should decrease with distance: g(10)=%v g(100)=%v", g1, g2)
	}
}

func TestBaseGainNone(t *testing.T) {
	for _, d := range []float32{0, 1, 1000} {
		if g := BaseGain(AttenuationNone, 10, d); g != 1 {
			t.Errorf("None model should always be 1, got %v at d=%v", g, d)
		}
	}
}

func TestComputedGainClamped(t *testing.T) {
	cases := []struct {
		model    Attenuation
		roll     float32
		d        float32
		vol      float32
		master   float32
	}{
		{AttenuationNone, 0, 0, 2, 2},
		{AttenuationLinear, 10, -5, 1, 1},
		{AttenuationInverseRolloff, 0.03, 1e6, 1, 1},
	}
	for _, c := range cases {
		g := ComputedGain(c.model, c.roll, c.d, c.vol, c.master)
		if g < 0 || g > 1 {
			t.Errorf("computed gain out of range: %v", g)
		}
	}
}

func TestComputedGainMasterZero(t *testing.T) {
	g := ComputedGain(AttenuationInverseRolloff, 0.03, 5, 1, 0)
	if g != 0 {
		t.Errorf("master gain of 0 should zero computed gain, got %v", g)
	}
}

func TestPanCenter(t *testing.T) {
	l := NewListener()
	p := Pan(l, Vec3{0, 0, -10})
	if p < -0.001 || p > 0.001 {
		t.Errorf("source directly ahead should pan to ~0, got %v", p)
	}
}

func TestPanSide(t *testing.T) {
	l := NewListener()
	right := Pan(l, Vec3{10, 0, 0})
	left := Pan(l, Vec3{-10, 0, 0})
	if right <= 0 {
		t.Errorf("source to the right should pan positive, got %v", right)
	}
	if left >= 0 {
		t.Errorf("source to the left should pan negative, got %v", left)
	}
	if right < -1 || right > 1 || left < -1 || left > 1 {
		t.Errorf("pan out of range: right=%v left=%v", right, left)
	}
}

func TestListenerOrientationNormalizesAndRejectsColinear(t *testing.T) {
	var l Listener
	if err := l.SetOrientation(Vec3{0, 0, -5}, Vec3{0, 2, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := l.LookAt.Length(); d < 0.999 || d > 1.001 {
		t.Errorf("look-at not normalized: length=%v", d)
	}
	if d := l.Up.Length(); d < 0.999 || d > 1.001 {
		t.Errorf("up not normalized: length=%v", d)
	}

	if err := l.SetOrientation(Vec3{0, 1, 0}, Vec3{0, 2, 0}); err != ErrColinearOrientation {
		t.Errorf("expected ErrColinearOrientation, got %v", err)
	}
}

func TestListenerTurnAccumulates(t *testing.T) {
	l := NewListener()
	l.SetAngle(0)
	l.Turn(1.0)
	l.Turn(1.0)
	if l.Yaw < 1.999 || l.Yaw > 2.001 {
		t.Errorf("expected yaw accumulation to 2.0, got %v", l.Yaw)
	}
}
