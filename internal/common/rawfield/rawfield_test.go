package rawfield

import "testing"

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"nil", nil, KindMissing},
		{"empty string", "", KindMissing},
		{"object", map[string]any{"libelle": "75 - Paris"}, KindObject},
		{"json string", `{"libelle": "75 - Paris", "commune": "75056"}`, KindEncodedObject},
		{"dict literal string", `{'libelle': '75 - Paris', 'commune': '75056'}`, KindEncodedObject},
		{"plain text", "Paris", KindText},
		{"braced non-object", "{not an object}", KindText},
		{"number", 42.0, KindOpaque},
	}

	for _, tt := range tests {
		if got := Parse(tt.in); got.Kind != tt.want {
			t.Errorf("%s: Parse kind = %v, want %v", tt.name, got.Kind, tt.want)
		}
	}
}

func TestGet(t *testing.T) {
	f := Parse(`{'libelle': '75 - Paris', 'commune': '75056'}`)
	if !f.IsObject() {
		t.Fatal("encoded dict literal did not parse as object")
	}
	if got := f.Get("libelle"); got != "75 - Paris" {
		t.Errorf("Get(libelle) = %q, want %q", got, "75 - Paris")
	}
	if got := f.Get("commune"); got != "75056" {
		t.Errorf("Get(commune) = %q, want %q", got, "75056")
	}
	if got := f.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}

	text := Parse("Paris")
	if text.Get("libelle") != "" {
		t.Error("Get on a text field should return empty")
	}
}

func TestParseKeepsTextOnUndecodableBraces(t *testing.T) {
	f := Parse(`{libelle: Paris}`)
	if f.Kind != KindText {
		t.Fatalf("kind = %v, want KindText", f.Kind)
	}
	if f.Text != `{libelle: Paris}` {
		t.Errorf("Text = %q, original string not preserved", f.Text)
	}
}
