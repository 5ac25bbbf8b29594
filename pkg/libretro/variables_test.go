package libretro

import (
	"errors"
	"testing"
)

type source map[string]string

func (s source) Variable(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{in: "true", want: true},
		{in: "enabled", want: true},
		{in: "on", want: true},
		{in: "false"},
		{in: "disabled"},
		{in: "off"},
		{in: "yes", wantErr: true},
		{in: "Enabled", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseBool(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBool(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrParse) {
			t.Errorf("ParseBool(%q) error not ErrParse", tt.in)
		}
		if got != tt.want {
			t.Errorf("ParseBool(%q) = %v", tt.in, got)
		}
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in      string
		want    uint
		wantErr bool
	}{
		{in: "1x (native)", want: 1},
		{in: "10x", want: 10},
		{in: "dithered 16bpp (native)", want: 16},
		{in: "32bpp", want: 32},
		{in: "native", wantErr: true},
		{in: "4:3", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseNumeric(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseNumeric(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		in      string
		a, b    uint
		wantErr bool
	}{
		{in: "4:3 (original)", a: 4, b: 3},
		{in: "16:9", a: 16, b: 9},
		{in: "21:9", a: 21, b: 9},
		{in: "16", wantErr: true},
		{in: "1:0", wantErr: true},
	}
	for _, tt := range tests {
		a, b, err := ParseRatio(tt.in)
		if (err != nil) != tt.wantErr || a != tt.a || b != tt.b {
			t.Errorf("ParseRatio(%q) = %v:%v, %v", tt.in, a, b, err)
		}
	}
}

func TestVariables(t *testing.T) {
	v := NewVariables("core",
		VariableDef{Name: "upscale", Description: "Internal upscaling factor; 1x (native)|2x|3x"},
		VariableDef{Name: "menu", Description: "Boot to BIOS menu; disabled|enabled"},
		VariableDef{Name: "ratio", Description: "Screen Ratio; 4:3 (original)|16:9"},
	)

	defs := v.Definitions()
	if len(defs) != 3 || defs[0].Key != "core_upscale" || defs[2].Value != "Screen Ratio; 4:3 (original)|16:9" {
		t.Errorf("definitions %v", defs)
	}
	if cc := v.Choices("upscale"); len(cc) != 3 || cc[2] != "3x" {
		t.Errorf("choices %q", cc)
	}

	// defaults without a frontend
	if v.Uint("upscale") != 1 || v.Bool("menu") {
		t.Error("defaults")
	}

	src := source{"core_upscale": "3x", "core_menu": "maybe", "core_ratio": "16:9"}
	v.Attach(src, nil)
	if v.Uint("upscale") != 3 {
		t.Errorf("upscale %v", v.Uint("upscale"))
	}
	if v.Bool("menu") {
		t.Error("unparsable value should fall back to the default")
	}
	if a, b := v.Ratio("ratio"); a != 16 || b != 9 {
		t.Errorf("ratio %v:%v", a, b)
	}
	if v.Value("missing") != "" {
		t.Error("unknown option has a value")
	}
}
