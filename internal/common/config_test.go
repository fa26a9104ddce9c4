package common

import "testing"

func TestParseLadder(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []float64
		wantErr bool
	}{
		{name: "default shape", raw: "1000,5000,10000", want: []float64{1000, 5000, 10000}},
		{name: "spaces tolerated", raw: " 100, 200 ", want: []float64{100, 200}},
		{name: "single entry", raw: "500", want: []float64{500}},
		{name: "not a number", raw: "100,abc", wantErr: true},
		{name: "not ascending", raw: "100,100", wantErr: true},
		{name: "descending", raw: "5000,1000", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseLadder(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("parseLadder(%q)=%v, expected %v", tc.raw, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("parseLadder(%q)=%v, expected %v", tc.raw, got, tc.want)
				}
			}
		})
	}
}
