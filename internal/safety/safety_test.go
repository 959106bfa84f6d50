package safety

import (
	"reflect"
	"strings"
	"testing"
)

func TestScan(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		// Everyday messages
		{"I want pizza", false},
		{"I had a long day at work", false},
		{"Can you help me sleep better?", false},
		{"my cat knocked over a plant", false},
		{"", false},

		// Emergency messages
		{"I want to die", true},
		{"I WANT TO DIE", true},
		{"sometimes I think about suicide", true},
		{"I've been cutting myself again", true},
		{"I think I overdosed", true},
		{"this is an emergency", true},
		{"I can't take it anymore", true},
		{"I can’t go on like this", true},
		{"I want to hurt someone", true},
		{"thinking about revenge", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Scan(tt.text)
			if got != tt.want {
				t.Errorf("Scan(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestScanEveryPhrase(t *testing.T) {
	for _, g := range emergencyPhrases {
		for _, p := range g.phrases {
			text := "lately " + strings.ToUpper(p) + " is on my mind"
			if !Scan(text) {
				t.Errorf("Scan(%q) = false, want true for %s phrase", text, g.category)
			}
		}
	}
}

func TestScanSubstringMatch(t *testing.T) {
	// Matching is deliberately crude: phrases inside longer words still count.
	// "strokes" contains "stroke", so a message about swimming strokes is flagged.
	if !Scan("I practiced my swimming strokes today") {
		t.Error("Scan() should flag substrings inside longer words")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Category
	}{
		{"none", "I want pizza", nil},
		{"single category", "I feel desperate", []Category{UrgentHelp}},
		{"two categories in table order", "I hate myself and I want to die", []Category{Suicide, EmotionalCrisis}},
		{"category reported once", "suicide, suicide, suicide", []Category{Suicide}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{Suicide, "suicide"},
		{SelfHarm, "self-harm"},
		{Medical, "medical"},
		{UrgentHelp, "urgent-help"},
		{EmotionalCrisis, "emotional-crisis"},
		{HarmToOthers, "harm-to-others"},
		{Category(99), "unknown"},
	}

	for _, tt := range tests {
		got := tt.category.String()
		if got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.category, got, tt.want)
		}
	}
}
