package constants

import "testing"

func TestParseOCRModel(t *testing.T) {
	tests := []struct {
		in     string
		want   OCRModel
		wantOK bool
	}{
		{"general", OCRModelGeneral, true},
		{"  LATIN ", OCRModelLatin, true},
		{"Korean script OCR", OCRModelKorean, true},
		{"hangul", OCRModelKorean, true},
		{"deva", OCRModelDevanagari, true},
		{"", DefaultOCRModel, false},
		{"klingon", DefaultOCRModel, false},
	}
	for _, tt := range tests {
		got, ok := ParseOCRModel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseOCRModel(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAllOCRModelsIsACopy(t *testing.T) {
	models := AllOCRModels()
	if len(models) != 6 {
		t.Fatalf("expected 6 models, got %d", len(models))
	}
	models[0] = "mutated"
	if AllOCRModels()[0] != OCRModelGeneral {
		t.Fatalf("AllOCRModels leaked its backing array")
	}
	for _, m := range AllOCRModels() {
		if !m.Valid() {
			t.Errorf("model %q reported invalid", m)
		}
	}
}

func TestImageExt(t *testing.T) {
	if !IsImageExt(".JPG") || !IsImageExt("webp") {
		t.Fatalf("expected jpg and webp to be accepted")
	}
	if IsImageExt(".pdf") {
		t.Fatalf("pdf is not an image")
	}
	if !IsHEICExt(".HEIF") {
		t.Fatalf("expected .HEIF to be HEIC")
	}
}
