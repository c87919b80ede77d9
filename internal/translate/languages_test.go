package translate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"
)

func lang(code string) SupportedLanguage {
	return SupportedLanguage{Tag: language.MustParse(code)}
}

func TestShortName(t *testing.T) {
	for _, code := range []string{"en-US", "es-ES", "zh-CN"} {
		if got := lang(code).ShortName(); got != code {
			t.Errorf("ShortName(%s) = %q", code, got)
		}
	}
	if got := lang("fr").Code(); got != "fr" {
		t.Errorf("Code(fr) = %q, want fr", got)
	}
}

func TestLocalizedName(t *testing.T) {
	tests := map[string]string{
		"en-US": "English (US)",
		"en-GB": "English (UK)",
		"zh-CN": "Chinese (Mandarin, Simplified)",
		"zh-TW": "Chinese (Mandarin, Traditional)",
		"es-ES": "Spanish (Spain)",
		"pt-BR": "Portuguese (Brazil)",
		"de-DE": "German",
		"ja-JP": "Japanese",
	}
	for code, want := range tests {
		if got := lang(code).LocalizedName(); got != want {
			t.Errorf("LocalizedName(%s) = %q, want %q", code, got, want)
		}
	}
}

func TestSortLanguages(t *testing.T) {
	got := SortLanguages([]SupportedLanguage{lang("es-ES"), lang("en-US"), lang("ar-SA")})
	var codes []string
	for _, l := range got {
		codes = append(codes, l.Code())
	}
	if diff := cmp.Diff([]string{"ar-SA", "en-US", "es-ES"}, codes); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestFindMatchingLanguage(t *testing.T) {
	available := []SupportedLanguage{lang("en-US"), lang("en-GB"), lang("es-ES"), lang("zh-CN")}

	t.Run("single match", func(t *testing.T) {
		got, ok := FindMatchingLanguage(available, "Spanish")
		if !ok || got.Base() != "es" {
			t.Fatalf("got %v, %v; want es", got.Code(), ok)
		}
	})
	t.Run("several matches use the regional default", func(t *testing.T) {
		got, ok := FindMatchingLanguage(available, "English")
		if !ok || got.Code() != "en-US" {
			t.Fatalf("got %v, %v; want en-US", got.Code(), ok)
		}
	})
	t.Run("localized name matches exactly", func(t *testing.T) {
		got, ok := FindMatchingLanguage(available, "English (UK)")
		if !ok || got.Code() != "en-GB" {
			t.Fatalf("got %v, %v; want en-GB", got.Code(), ok)
		}
	})
	t.Run("no match", func(t *testing.T) {
		if _, ok := FindMatchingLanguage(available, "French"); ok {
			t.Fatal("expected no match for French")
		}
	})
	t.Run("unknown", func(t *testing.T) {
		if _, ok := FindMatchingLanguage(available, "Unknown"); ok {
			t.Fatal("expected no match for Unknown")
		}
	})
}

func TestFindByTag(t *testing.T) {
	available := DefaultSupported
	tests := []struct {
		tag  string
		want string
		ok   bool
	}{
		{"en", "en-US", true},
		{"en-GB", "en-GB", true},
		{"zh-TW", "zh-TW", true},
		{"es", "es-ES", true},
		{"ca", "", false},
		{"detect", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FindByTag(available, tt.tag)
		if ok != tt.ok {
			t.Errorf("FindByTag(%q) ok = %v, want %v", tt.tag, ok, tt.ok)
			continue
		}
		if ok && got.Code() != tt.want {
			t.Errorf("FindByTag(%q) = %q, want %q", tt.tag, got.Code(), tt.want)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	if _, ok := ParseLanguage("detect"); ok {
		t.Error("detect should not parse to a language")
	}
	if _, ok := ParseLanguage("  "); ok {
		t.Error("blank should not parse to a language")
	}
	l, ok := ParseLanguage("pt_BR")
	if !ok || l.Code() != "pt-BR" {
		t.Errorf("ParseLanguage(pt_BR) = %q, %v", l.Code(), ok)
	}
}
