package heuristics

import "testing"

func TestIsGibberishDegenerateInputs(t *testing.T) {
	cases := []string{"", "   ", "\t\n", "?", "!!!", "_ _", "a", "...?!"}
	for _, input := range cases {
		if !IsGibberish(input) {
			t.Errorf("IsGibberish(%q) = false, want true", input)
		}
	}
}

func TestIsGibberishNoVowels(t *testing.T) {
	cases := []string{"bcdfg", "xzqwrt", "hmm thx pls"}
	for _, input := range cases {
		if !IsGibberish(input) {
			t.Errorf("IsGibberish(%q) = false, want true", input)
		}
	}
}

func TestIsGibberishExtremeConsonantRatio(t *testing.T) {
	// 17 consonants to 1 vowel.
	if !IsGibberish("bcdfghjklmnpqrstw a") {
		t.Error("expected extreme consonant ratio to gate")
	}
	// 7:1 exactly is allowed; the rule requires strictly more.
	if IsGibberish("bcdfghja") {
		t.Error("7:1 ratio should not gate")
	}
}

func TestIsGibberishRepeatedSequences(t *testing.T) {
	cases := []string{"ababab", "hahaha ok", "asdasdasd", "asdkjhasdkjh"}
	for _, input := range cases {
		if !IsGibberish(input) {
			t.Errorf("IsGibberish(%q) = false, want true", input)
		}
	}
}

func TestIsGibberishHighNonAlphaRatio(t *testing.T) {
	if !IsGibberish("a+b=c?!#$%^&*") {
		t.Error("expected symbol-heavy input to gate")
	}
}

func TestIsGibberishAcceptsNormalText(t *testing.T) {
	cases := []string{
		"Is there a road blockage near Clementi?",
		"How do I report a noise complaint?",
		"What does NEA handle?",
		"strengths and weaknesses of the scheme",
	}
	for _, input := range cases {
		if IsGibberish(input) {
			t.Errorf("IsGibberish(%q) = true, want false", input)
		}
	}
}

func TestIsGibberishNonLatinScript(t *testing.T) {
	// The gate normally sees post-translation English, but a non-Latin
	// sentence must not trip the vowel rule.
	if IsGibberish("这个垃圾桶已经满了") {
		t.Error("non-Latin text should not gate on the consonant rule")
	}
}
