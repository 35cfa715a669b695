package source

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     Kind
	}{
		{
			name:     "drive folder url",
			location: "https://drive.google.com/drive/folders/1a2b3c",
			want:     KindGDrive,
		},
		{
			name:     "mega nz folder url",
			location: "https://mega.nz/folder/abcd1234#keykeykey",
			want:     KindMega,
		},
		{
			name:     "mega io folder url",
			location: "https://mega.io/folder/abcd1234#keykeykey",
			want:     KindMega,
		},
		{
			name:     "mega co nz folder url",
			location: "https://mega.co.nz/folder/abcd1234#keykeykey",
			want:     KindMega,
		},
		{
			name:     "apkg path",
			location: "/home/user/decks/Vocabulary.apkg",
			want:     KindArchive,
		},
		{
			name:     "apkg path uppercase suffix",
			location: "C:\\decks\\Vocabulary.APKG",
			want:     KindArchive,
		},
		{
			name:     "plain directory",
			location: "/home/user/Pictures",
			want:     KindLocal,
		},
		{
			name:     "relative path",
			location: "media/",
			want:     KindLocal,
		},
		{
			name:     "leading whitespace",
			location: "  https://mega.nz/folder/abcd#key",
			want:     KindMega,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.location); got != tt.want {
				t.Errorf("Detect(%q) = %s, want %s", tt.location, got, tt.want)
			}
		})
	}
}
