package chem

import (
	"errors"
	"testing"
)

func TestPassthrough(t *testing.T) {
	m, err := Passthrough("c1ccccc1O")
	if err != nil {
		t.Fatalf("Passthrough failed: %v", err)
	}
	if got := m.Structure(); got != "c1ccccc1O" {
		t.Errorf("Structure() = %q", got)
	}
}

func TestDescriptorFunc(t *testing.T) {
	d := DescriptorFunc("MW", func(m Mol) (float64, error) {
		return float64(len(m.Structure())), nil
	})
	if d.Name() != "MW" {
		t.Errorf("Name() = %q", d.Name())
	}
	m, _ := Passthrough("CCO")
	v, err := d.Calc(m)
	if err != nil || v != 3 {
		t.Errorf("Calc() = %v, %v", v, err)
	}
}

func TestScaffoldFunc(t *testing.T) {
	boom := errors.New("boom")
	s := ScaffoldFunc("Murcko", func(Mol) (string, error) {
		return "", boom
	})
	if s.Name() != "Murcko" {
		t.Errorf("Name() = %q", s.Name())
	}
	m, _ := Passthrough("CCO")
	if _, err := s.Extract(m); !errors.Is(err, boom) {
		t.Errorf("Extract() error = %v, want the function's error", err)
	}
}
