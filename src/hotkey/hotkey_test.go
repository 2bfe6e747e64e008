package hotkey

import (
	"reflect"
	"testing"
)

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		keyName  string
		expected []uint16
	}{
		{"ctrl", []uint16{162, 163}},
		{"Control", []uint16{162, 163}},
		{"alt", []uint16{164, 165}},
		{"shift", []uint16{160, 161}},
		{"win", []uint16{91, 92}},
		{"super", []uint16{91, 92}},
		{"a", []uint16{65}},
		{"o", []uint16{79}},
		{"z", []uint16{90}},
		{"0", []uint16{48}},
		{"9", []uint16{57}},
		{"f1", []uint16{112}},
		{"f12", []uint16{123}},
		{"f24", []uint16{135}},
		{"f25", nil},
		{"space", []uint16{32}},
		{"escape", []uint16{27}},
		{"pgdn", []uint16{34}},
		{"unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.keyName, func(t *testing.T) {
			if got := keyNameToRawcodes(tt.keyName); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("keyNameToRawcodes(%q) = %v, expected %v", tt.keyName, got, tt.expected)
			}
		})
	}
}

func TestParseHotkey(t *testing.T) {
	got := parseHotkey(" Ctrl + Alt+O ")
	want := []string{"ctrl", "alt", "o"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseHotkey() = %v, want %v", got, want)
	}
}

func TestComboMatching(t *testing.T) {
	c, err := ParseCombo("Ctrl+Alt+O")
	if err != nil {
		t.Fatal(err)
	}
	if c.Down(162) || c.Down(165) {
		t.Fatal("partial combination must not match")
	}
	if !c.Down(79) {
		t.Fatal("full combination should match")
	}
	// State resets after a match.
	if c.Down(79) {
		t.Error("combination fired again without modifiers held")
	}
	c.Up(79)

	c.Down(163)
	c.Down(164)
	c.Up(164)
	if c.Down(79) {
		t.Error("released modifier must not count")
	}
}

func TestParseComboErrors(t *testing.T) {
	for _, bad := range []string{"", "Ctrl+Hyper", "+"} {
		if _, err := ParseCombo(bad); err == nil {
			t.Errorf("ParseCombo(%q) should fail", bad)
		}
	}
}
