package langid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeIdentifier struct {
	hyps     []Hypothesis
	dominant string
	calls    int
}

func (f *fakeIdentifier) Hypotheses(_ string, max int) []Hypothesis {
	f.calls++
	if len(f.hyps) > max {
		return f.hyps[:max]
	}
	return f.hyps
}

func (f *fakeIdentifier) Dominant(string) (string, bool) {
	return f.dominant, f.dominant != ""
}

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		id   *fakeIdentifier
		want Result
	}{
		{
			name: "english promoted ahead of higher-probability alternate",
			id: &fakeIdentifier{dominant: "es", hyps: []Hypothesis{
				{"es", 0.55}, {"ca", 0.20}, {"en", 0.07}, {"pt", 0.04},
			}},
			want: Result{DominantLanguage: "Spanish", DominantTag: "es", PossibleLanguages: []string{"English", "Catalan"}},
		},
		{
			name: "clear english text has no alternates",
			id: &fakeIdentifier{dominant: "en", hyps: []Hypothesis{
				{"en", 0.93}, {"nl", 0.04}, {"de", 0.03},
			}},
			want: Result{DominantLanguage: "English", DominantTag: "en", PossibleLanguages: []string{}},
		},
		{
			name: "english below its threshold is dropped",
			id: &fakeIdentifier{dominant: "fr", hyps: []Hypothesis{
				{"fr", 0.60}, {"it", 0.30}, {"en", 0.049},
			}},
			want: Result{DominantLanguage: "French", DominantTag: "fr", PossibleLanguages: []string{"Italian"}},
		},
		{
			name: "capped at four with english first",
			id: &fakeIdentifier{dominant: "de", hyps: []Hypothesis{
				{"de", 0.30}, {"nl", 0.14}, {"da", 0.13}, {"sv", 0.12}, {"nb", 0.11}, {"fr", 0.10}, {"en", 0.06},
			}},
			want: Result{DominantLanguage: "German", DominantTag: "de", PossibleLanguages: []string{"English", "Dutch", "Danish", "Swedish"}},
		},
		{
			name: "ties broken by tag",
			id: &fakeIdentifier{dominant: "ru", hyps: []Hypothesis{
				{"ru", 0.4}, {"uk", 0.2}, {"bg", 0.2}, {"be", 0.2},
			}},
			want: Result{DominantLanguage: "Russian", DominantTag: "ru", PossibleLanguages: []string{"Belarusian", "Bulgarian", "Ukrainian"}},
		},
		{
			name: "dominant query wins over hypothesis order",
			id: &fakeIdentifier{dominant: "ca", hyps: []Hypothesis{
				{"es", 0.50}, {"ca", 0.45},
			}},
			want: Result{DominantLanguage: "Catalan", DominantTag: "ca", PossibleLanguages: []string{"Spanish"}},
		},
		{
			name: "nothing above threshold",
			id: &fakeIdentifier{dominant: "ja", hyps: []Hypothesis{
				{"zh", 0.09}, {"ko", 0.08},
			}},
			want: Result{DominantLanguage: "Japanese", DominantTag: "ja", PossibleLanguages: []string{}},
		},
		{
			name: "no dominant language",
			id: &fakeIdentifier{hyps: []Hypothesis{
				{"es", 0.5}, {"en", 0.3},
			}},
			want: Unknown(),
		},
		{
			name: "unnamed tag falls back to raw tag",
			id: &fakeIdentifier{dominant: "en", hyps: []Hypothesis{
				{"en", 0.7}, {"qq-zz", 0.3},
			}},
			want: Result{DominantLanguage: "English", DominantTag: "en", PossibleLanguages: []string{"qq-zz"}},
		},
		{
			name: "unnamed dominant reads as unknown but keeps its tag",
			id: &fakeIdentifier{dominant: "qq-zz", hyps: []Hypothesis{
				{"qq-zz", 0.6}, {"it", 0.3}, {"en", 0.06},
			}},
			want: Result{DominantLanguage: "Unknown", DominantTag: "qq-zz", PossibleLanguages: []string{"English", "Italian"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRanker(tt.id, NewNamer("en"), nil)
			got := r.Rank("some text")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Rank mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankInvariants(t *testing.T) {
	id := &fakeIdentifier{dominant: "it", hyps: []Hypothesis{
		{"it", 0.20}, {"es", 0.15}, {"pt", 0.15}, {"fr", 0.12}, {"ro", 0.11}, {"ca", 0.10}, {"en", 0.05}, {"la", 0.05},
	}}
	r := NewRanker(id, nil, nil)
	first := r.Rank("ciao")

	if len(first.PossibleLanguages) > MaxAlternates {
		t.Fatalf("too many alternates: %v", first.PossibleLanguages)
	}
	if first.PossibleLanguages[0] != "English" {
		t.Fatalf("english not first: %v", first.PossibleLanguages)
	}
	for _, name := range first.PossibleLanguages {
		if name == first.DominantLanguage {
			t.Fatalf("dominant %q duplicated in %v", name, first.PossibleLanguages)
		}
	}
	if diff := cmp.Diff(first, r.Rank("ciao")); diff != "" {
		t.Fatalf("ranking is not idempotent:\n%s", diff)
	}
}

func TestRankBlankTextSkipsIdentifier(t *testing.T) {
	id := &fakeIdentifier{dominant: "en"}
	got := NewRanker(id, nil, nil).Rank("  \n ")
	if diff := cmp.Diff(Unknown(), got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if id.calls != 0 {
		t.Fatalf("identifier called %d times", id.calls)
	}
	if !got.IsUnknown() {
		t.Fatal("expected IsUnknown")
	}
}

func TestNamer(t *testing.T) {
	n := NewNamer("")
	if got := n.Name("es"); got != "Spanish" {
		t.Errorf("es -> %q", got)
	}
	if got := n.Name("!!"); got != "!!" {
		t.Errorf("fallback -> %q", got)
	}
	if name, ok := n.Lookup("qq-zz"); ok {
		t.Errorf("Lookup(qq-zz) = %q, want no name", name)
	}
	fr := NewNamer("fr")
	if got := fr.Name("de"); got != "allemand" {
		t.Errorf("de in french -> %q", got)
	}
	for tag, want := range map[string]bool{"en": true, "en-GB": true, "EN_us": true, "eu": false, "": false} {
		if IsEnglish(tag) != want {
			t.Errorf("IsEnglish(%q) != %v", tag, want)
		}
	}
}
