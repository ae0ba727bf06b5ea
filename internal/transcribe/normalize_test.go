package transcribe

import "testing"

func TestCollapseWhitespace(t *testing.T) {
	got := CollapseWhitespace("  話者1:\tはい\n\nそうですね  ")
	want := "話者1: はい そうですね"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeTranscript(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{
			name:  "space between CJK runes is dropped",
			input: "会議を 開始 します",
			want:  "会議を開始します",
		},
		{
			name:  "space between Latin words survives",
			input: "kick off meeting",
			want:  "kick off meeting",
		},
		{
			name:  "mixed boundary keeps the space",
			input: "OKR の確認",
			want:  "OKR の確認",
		},
		{
			name:  "whitespace runs collapse first",
			input: "議題は\n\n予算です",
			want:  "議題は予算です",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTranscript(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
