package debate

import (
	"slices"
	"testing"
)

func TestExtractClaims(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "drops header and trailing question",
			text: "Stance: PRO, I will defend remote work. Studies show output rises when commutes disappear. Focus time is easier to protect at home. What evidence would change your mind?",
			want: []string{
				"Studies show output rises when commutes disappear.",
				"Focus time is easier to protect at home.",
			},
		},
		{
			name: "drops acknowledgment openers",
			text: "I state my stance here as instructed. You're right about commute time, but that is not the whole story. Offices enable faster mentoring for juniors. What about onboarding?",
			want: []string{"Offices enable faster mentoring for juniors."},
		},
		{
			name: "drops fuzzy acknowledgment",
			text: "The stance sentence opens this reply as always. Youre right about X, mostly. Remote teams report fewer interruptions per day. Would you dispute that?",
			want: []string{"Remote teams report fewer interruptions per day."},
		},
		{
			name: "drops thin sentences",
			text: "My stance stays the same as before, naturally. Indeed so. Dogs guard their owners with real devotion. Do you disagree?",
			want: []string{"Dogs guard their owners with real devotion."},
		},
		{
			name: "short message keeps its body",
			text: "Dogs protect their owners. Don't you think?",
			want: []string{"Dogs protect their owners."},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractClaims(tt.text)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ExtractClaims() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAcknowledgment(t *testing.T) {
	tests := []struct {
		sentence string
		want     bool
	}{
		{"You're right about the data.", true},
		{"you are right, but still.", true},
		{"I agree with that part.", true},
		{"Fair point on costs.", true},
		{"Tienes razón sobre eso.", true},
		{"Dogs are loyal companions.", false},
		{"Your point misses the mechanism.", false},
	}

	for _, tt := range tests {
		if got := isAcknowledgment(tt.sentence); got != tt.want {
			t.Errorf("isAcknowledgment(%q) = %v, want %v", tt.sentence, got, tt.want)
		}
	}
}
