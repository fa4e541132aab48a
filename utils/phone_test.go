package utils

import "testing"

func TestNormalizePhoneNumber(t *testing.T) {
	cases := []struct {
		in, region, want string
		wantErr          bool
	}{
		{in: "01 42 68 53 00", region: "FR", want: "+33142685300"},
		{in: "+1 650-253-0000", region: "FR", want: "+16502530000"},
		{in: "12345", region: "FR", wantErr: true},
		{in: "not a phone", region: "FR", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizePhoneNumber(tc.in, tc.region)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %q, %v want %q", tc.in, got, err, tc.want)
		}
	}
}
