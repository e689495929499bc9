package language

import (
	"encoding/json"
	"testing"
)

func TestGuess(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name   string
		lines  []string
		want   Language
		wantOK bool
	}{
		{
			name: "node trace",
			lines: []string{
				"TypeError: this.request.csrfToken is not a function",
				"    at LinkNewRelicRequest.createLauncherModel (/app/dist/links.js:81:23)",
				"    at runMicrotasks (<anonymous>)",
			},
			want:   JavaScript,
			wantOK: true,
		},
		{
			name: "webpack query string",
			lines: []string{
				"at createRouterError (webpack:////builds/app/node_modules/vue-router/dist/vue-router.esm.js?:2066:15)",
			},
			want:   JavaScript,
			wantOK: true,
		},
		{
			name: "ruby",
			lines: []string{
				"/usr/local/bundle/gems/sinatra-2.0.8.1/lib/sinatra/base.rb:1635:in `block in compile!'",
			},
			want:   Ruby,
			wantOK: true,
		},
		{
			name: "python",
			lines: []string{
				"Traceback (most recent call last):",
				`  File "/usr/lib/python3.9/site-packages/gunicorn/app/base.py", line 72, in run`,
			},
			want:   Python,
			wantOK: true,
		},
		{
			name: "csharp razor view",
			lines: []string{
				"   at AspNetCore.Views_Home_Index.ExecuteAsync() in /src/Views/Home/Index.cshtml:line 5",
			},
			want:   CSharp,
			wantOK: true,
		},
		{
			name: "java",
			lines: []string{
				"\tat com.example.myproject.Book.getTitle(Book.java:16)",
			},
			want:   Java,
			wantOK: true,
		},
		{
			name:   "go",
			lines:  []string{"main.main (/home/dev/app/main.go:12)"},
			want:   Go,
			wantOK: true,
		},
		{
			name:   "json is not javascript",
			lines:  []string{"failed to load /etc/app/settings.json"},
			want:   Unknown,
			wantOK: false,
		},
		{
			name:   "dotted package is not an extension",
			lines:  []string{"at org.mortbay.jetty.servlet.Handler(Unknown Source)"},
			want:   Unknown,
			wantOK: false,
		},
		{
			name:   "no paths at all",
			lines:  []string{"something went wrong"},
			want:   Unknown,
			wantOK: false,
		},
		{
			name:   "empty",
			lines:  nil,
			want:   Unknown,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Guess(tt.lines)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Guess() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestGuess_TieGoesToFirstScanned(t *testing.T) {
	d := NewDetector()

	// One Ruby line, one Python line: Ruby is scanned first and keeps the win.
	lines := []string{
		"app/models/user.rb:10:in `save'",
		`  File "app/models/user.py", line 10, in save`,
	}
	got, ok := d.Guess(lines)
	if !ok || got != Ruby {
		t.Errorf("Guess() = (%v, %v), want (ruby, true)", got, ok)
	}

	// Reversing line order does not change the winner.
	got, _ = d.Guess([]string{lines[1], lines[0]})
	if got != Ruby {
		t.Errorf("Guess() reversed = %v, want ruby", got)
	}
}

func TestGuess_HighestCountWins(t *testing.T) {
	d := NewDetector()

	lines := []string{
		"app/models/user.rb:10:in `save'",
		`  File "app/a.py", line 1, in a`,
		`  File "app/b.py", line 2, in b`,
	}
	if got, _ := d.Guess(lines); got != Python {
		t.Errorf("Guess() = %v, want python", got)
	}
}

func TestGuess_ExtraMapping(t *testing.T) {
	m, err := ParseMapping("kt", "java")
	if err != nil {
		t.Fatalf("ParseMapping() error = %v", err)
	}
	d := NewDetector(m)

	got, ok := d.Guess([]string{"at com.acme.Main.run(Main.kt:14)"})
	if !ok || got != Java {
		t.Errorf("Guess() = (%v, %v), want (java, true)", got, ok)
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{"javascript", JavaScript, false},
		{"Ruby", Ruby, false},
		{"csharp", CSharp, false},
		{"golang", Go, false},
		{"node", JavaScript, false},
		{"TypeScript", JavaScript, false},
		{"python3", Python, false},
		{"", Unknown, true},
		{"fortran77-nope", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLanguage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLanguageText(t *testing.T) {
	for _, l := range append([]Language{Unknown}, All...) {
		b, err := l.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var back Language
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", b, err)
		}
		if back != l {
			t.Errorf("round trip %v -> %q -> %v", l, b, back)
		}
	}
}

func TestLanguageJSON(t *testing.T) {
	type payload struct {
		Language Language `json:"language"`
	}

	tests := []struct {
		in   string
		want Language
	}{
		{`{"language":"unknown"}`, Unknown},
		{`{"language":""}`, Unknown},
		{`{"language":"csharp"}`, CSharp},
		{`{"language":"node"}`, JavaScript},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p payload
			if err := json.Unmarshal([]byte(tt.in), &p); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if p.Language != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, p.Language, tt.want)
			}
		})
	}

	data, err := json.Marshal(payload{Language: Unknown})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back payload
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("round trip of %s failed: %v", data, err)
	}
	if back.Language != Unknown {
		t.Errorf("round trip of %s = %v, want unknown", data, back.Language)
	}

	var bad payload
	if err := json.Unmarshal([]byte(`{"language":"fortran77-nope"}`), &bad); err == nil {
		t.Error("expected error for a language without a grammar")
	}
}
