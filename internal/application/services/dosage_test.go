package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalDosageForm(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Oral Tablet", "tablet"},
		{"ibuprofen 200 MG Oral Tablet", "tablet"},
		{"TABLET", "tablet"},
		{"amoxicillin 500 MG Oral Capsule", "capsule"},
		{"Injectable Solution", "injection"},
		{"fentanyl Transdermal Patch", "patch"},
		{"Nasal Spray", "spray"},
		{"", ""},
		{"powder", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalDosageForm(tt.input), "input %q", tt.input)
	}
}

func TestCompatibleDosageForm(t *testing.T) {
	assert.True(t, CompatibleDosageForm("Oral Tablet", "tablet"))
	assert.True(t, CompatibleDosageForm("", "tablet"))
	assert.True(t, CompatibleDosageForm("powder", "tablet"))
	assert.False(t, CompatibleDosageForm("Oral Tablet", "Oral Capsule"))
	assert.False(t, CompatibleDosageForm("Injectable Solution", "cream"))
}

func TestParseStrength(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ibuprofen 200 MG Oral Tablet", "200 mg"},
		{"insulin glargine 100 UNT/ML", ""},
		{"acetaminophen 325 mg / oxycodone 5 mg", "325 mg"},
		{"lidocaine 2 % Topical Gel", "2 %"},
		{"amoxicillin 250 MG/ML Oral Suspension", "250 mg/ml"},
		{"aspirin", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseStrength(tt.input), "input %q", tt.input)
	}
}
